package scheduledata

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/PeterM45/tax-engine/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Shared-cache in-memory databases vanish when the last connection
	// closes; keep a single connection for the test's lifetime.
	db.SetMaxOpenConns(1)

	require.NoError(t, EnsureSchema(db))
	return db
}

func testKey(year int) domain.ScheduleKey {
	return domain.ScheduleKey{
		Jurisdiction: domain.Federal(domain.CountryUSA),
		EntityType:   domain.EntityIndividual,
		TaxYear:      year,
	}
}

func testSchedule(year int) domain.TaxSchedule {
	upper := decimal.RequireFromString("50000")
	return domain.NewTaxSchedule(year, []domain.TaxBracket{
		{LowerBound: decimal.RequireFromString("50000"), UpperBound: nil, Rate: decimal.RequireFromString("0.25")},
		{LowerBound: decimal.Zero, UpperBound: &upper, Rate: decimal.RequireFromString("0.15")},
	})
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	key := testKey(2024)

	require.NoError(t, repo.Store(key, testSchedule(2024), time.Hour))

	got, err := repo.GetIfFresh(key)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, 2024, got.TaxYear)
	require.Len(t, got.Brackets, 2)

	// Round trip preserves exact decimals and sorted order
	assert.True(t, got.Brackets[0].LowerBound.IsZero())
	assert.True(t, got.Brackets[0].Rate.Equal(decimal.RequireFromString("0.15")))
	require.NotNil(t, got.Brackets[0].UpperBound)
	assert.True(t, got.Brackets[0].UpperBound.Equal(decimal.RequireFromString("50000")))
	assert.Nil(t, got.Brackets[1].UpperBound)
}

func TestGetIfFreshMissingKey(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	got, err := repo.GetIfFresh(testKey(2024))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetIfFreshIgnoresExpired(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	key := testKey(2024)

	// Already expired on insert
	require.NoError(t, repo.Store(key, testSchedule(2024), -time.Hour))

	got, err := repo.GetIfFresh(key)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Get still returns the stale row
	stale, err := repo.Get(key)
	require.NoError(t, err)
	require.NotNil(t, stale)
	assert.Equal(t, 2024, stale.TaxYear)
}

func TestStoreOverwrites(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	key := testKey(2024)

	require.NoError(t, repo.Store(key, testSchedule(2024), -time.Hour))
	require.NoError(t, repo.Store(key, testSchedule(2024), time.Hour))

	got, err := repo.GetIfFresh(key)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestDelete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	key := testKey(2024)

	require.NoError(t, repo.Store(key, testSchedule(2024), time.Hour))
	require.NoError(t, repo.Delete(key))

	got, err := repo.Get(key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteExpired(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.Store(testKey(2022), testSchedule(2022), -time.Hour))
	require.NoError(t, repo.Store(testKey(2023), testSchedule(2023), -time.Hour))
	require.NoError(t, repo.Store(testKey(2024), testSchedule(2024), time.Hour))

	deleted, err := repo.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	// Fresh entry survives
	got, err := repo.GetIfFresh(testKey(2024))
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestCleanupJob(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	require.NoError(t, repo.Store(testKey(2022), testSchedule(2022), -time.Hour))

	job := NewCleanupJob(repo, zerolog.Nop())
	assert.Equal(t, "schedule_data_cleanup", job.Name())
	require.NoError(t, job.Run())

	got, err := repo.Get(testKey(2022))
	require.NoError(t, err)
	assert.Nil(t, got)
}
