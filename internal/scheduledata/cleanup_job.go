package scheduledata

import (
	"github.com/rs/zerolog"
)

// CleanupJob removes expired rows from the schedules table. Expiry is
// detected lazily on read, so this exists only to keep the table from
// growing without bound; it should be scheduled to run daily.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates a new schedule data cleanup job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "schedule_data_cleanup").Logger(),
	}
}

// Run executes the cleanup job.
func (j *CleanupJob) Run() error {
	deleted, err := j.repo.DeleteExpired()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired schedules")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Msg("Cleaned up expired schedule cache entries")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "schedule_data_cleanup"
}
