package domain

import "context"

// RateSource produces tax schedules for the jurisdictions it supports.
// Concrete implementations live in internal/clients (one per jurisdiction
// family); the resolver selects the first source whose SupportsJurisdiction
// returns true - first match wins.
type RateSource interface {
	// SupportsJurisdiction reports whether this source can fetch rates for
	// the given jurisdiction. It must be cheap and side-effect free.
	SupportsJurisdiction(jurisdiction Jurisdiction) bool

	// FetchRates fetches and parses the schedule for the given combination.
	// Unsupported (jurisdiction, entityType) combinations fail with
	// ErrUnsupportedJurisdiction without attempting any network work.
	FetchRates(ctx context.Context, jurisdiction Jurisdiction, entityType EntityType, taxYear int) (TaxSchedule, error)
}

// ScheduleCache is a keyed, time-expiring schedule store shared by all
// concurrent resolver calls. Get ignores (but does not delete) expired
// entries; Set unconditionally overwrites with a fresh timestamp.
type ScheduleCache interface {
	Get(key ScheduleKey) (TaxSchedule, bool)
	Set(key ScheduleKey, schedule TaxSchedule) error
}
