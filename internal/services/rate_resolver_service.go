// Package services contains the orchestration layer that composes caches,
// rate sources and the calculator into complete operations.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/PeterM45/tax-engine/internal/domain"
	"github.com/PeterM45/tax-engine/internal/scheduledata"
)

// RateResolverService resolves the applicable tax schedule for a lookup key:
// memory cache first, then the persistent store, then the first rate source
// that supports the jurisdiction. Successful fetches repopulate both cache
// levels; failures are propagated to the caller and never cached.
//
// Concurrent misses on the same key may each perform a fetch - duplicate
// network work is accepted over request-coalescing complexity.
type RateResolverService struct {
	cache      domain.ScheduleCache
	store      *scheduledata.Repository // optional - nil disables persistence
	sources    []domain.RateSource
	persistTTL time.Duration
	log        zerolog.Logger
}

// NewRateResolverService creates a resolver. store may be nil, in which case
// only the in-memory cache level is used. Sources are consulted in order;
// the first whose SupportsJurisdiction returns true wins.
func NewRateResolverService(
	cache domain.ScheduleCache,
	store *scheduledata.Repository,
	sources []domain.RateSource,
	persistTTL time.Duration,
	log zerolog.Logger,
) *RateResolverService {
	return &RateResolverService{
		cache:      cache,
		store:      store,
		sources:    sources,
		persistTTL: persistTTL,
		log:        log.With().Str("service", "rate_resolver").Logger(),
	}
}

// Resolve returns the schedule for (jurisdiction, entityType, taxYear).
func (s *RateResolverService) Resolve(ctx context.Context, jurisdiction domain.Jurisdiction, entityType domain.EntityType, taxYear int) (domain.TaxSchedule, error) {
	key := domain.ScheduleKey{Jurisdiction: jurisdiction, EntityType: entityType, TaxYear: taxYear}

	// Level 1: in-memory cache
	if schedule, ok := s.cache.Get(key); ok {
		s.log.Debug().Stringer("key", key).Msg("Cache hit")
		return schedule, nil
	}

	// Level 2: persistent store, promoted into memory on a fresh hit
	if s.store != nil {
		schedule, err := s.store.GetIfFresh(key)
		if err != nil {
			s.log.Warn().Err(err).Stringer("key", key).Msg("Persistent store read failed")
		} else if schedule != nil {
			if err := s.cache.Set(key, *schedule); err != nil {
				s.log.Warn().Err(err).Stringer("key", key).Msg("Failed to cache schedule")
			}
			s.log.Debug().Stringer("key", key).Msg("Persistent store hit")
			return *schedule, nil
		}
	}

	source := s.sourceFor(jurisdiction)
	if source == nil {
		return domain.TaxSchedule{}, domain.ErrUnsupportedJurisdiction
	}

	schedule, err := source.FetchRates(ctx, jurisdiction, entityType, taxYear)
	if err != nil {
		// No negative caching - the next call retries the fetch
		return domain.TaxSchedule{}, err
	}

	if err := s.cache.Set(key, schedule); err != nil {
		s.log.Warn().Err(err).Stringer("key", key).Msg("Failed to cache schedule")
	}
	if s.store != nil {
		if err := s.store.Store(key, schedule, s.persistTTL); err != nil {
			s.log.Warn().Err(err).Stringer("key", key).Msg("Failed to persist schedule")
		}
	}

	s.log.Info().
		Stringer("key", key).
		Int("brackets", len(schedule.Brackets)).
		Msg("Resolved tax schedule")

	return schedule, nil
}

// sourceFor returns the first source supporting the jurisdiction, or nil.
func (s *RateResolverService) sourceFor(jurisdiction domain.Jurisdiction) domain.RateSource {
	for _, source := range s.sources {
		if source.SupportsJurisdiction(jurisdiction) {
			return source
		}
	}
	return nil
}
