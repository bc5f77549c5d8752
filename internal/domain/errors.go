package domain

import (
	"errors"
	"fmt"
)

// Every failure in the rate resolution pipeline is a value returned to the
// caller, never a process abort. Parameterless kinds are sentinel values
// matched with errors.Is; kinds carrying detail are types matched with
// errors.As.
var (
	// ErrYearMismatch is returned when an entity's tax year disagrees with
	// the schedule's tax year at calculation time.
	ErrYearMismatch = errors.New("tax year mismatch between entity and schedule")

	// ErrInvalidBrackets is reserved for schedule validation. Schedule
	// construction is deliberately permissive and never returns it; a
	// future validator would.
	ErrInvalidBrackets = errors.New("invalid tax bracket configuration")

	// ErrUnsupportedJurisdiction is returned when no rate source supports
	// the requested jurisdiction, or a source is asked for a combination
	// it does not handle.
	ErrUnsupportedJurisdiction = errors.New("unsupported jurisdiction")
)

// FetchError indicates that every fallback candidate was exhausted without a
// successful response. Detail carries the last recorded failure.
type FetchError struct {
	Detail string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch tax data: %s", e.Detail)
}

// ParseError indicates the document was fetched but no bracket pattern
// matched any text fragment.
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse tax data: %s", e.Detail)
}

// RateNotAvailableError indicates extraction produced zero usable brackets
// for the requested tax year after assembly.
type RateNotAvailableError struct {
	TaxYear int
}

func (e *RateNotAvailableError) Error() string {
	return fmt.Sprintf("rate not available for year %d", e.TaxYear)
}
