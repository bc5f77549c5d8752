// Package calculator implements progressive marginal tax calculation.
package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/PeterM45/tax-engine/internal/domain"
)

// Calculate computes the total tax owed by an entity under a schedule using
// progressive bracket math. All arithmetic is exact decimal - summing
// rate x income across brackets reproduces the same result for the same
// inputs, which binary floating point cannot guarantee.
//
// Returns domain.ErrYearMismatch if the entity and schedule tax years
// disagree. No other cross-validation is performed here; bracket
// well-formedness is the schedule producer's responsibility.
func Calculate(entity domain.TaxEntity, schedule domain.TaxSchedule) (decimal.Decimal, error) {
	if entity.TaxYear != schedule.TaxYear {
		return decimal.Zero, domain.ErrYearMismatch
	}

	taxableIncome := entity.TaxableIncome()
	totalTax := decimal.Zero
	remainingIncome := taxableIncome

	// Brackets are sorted ascending by lower bound at construction time.
	for _, bracket := range schedule.Brackets {
		var bracketIncome decimal.Decimal
		if bracket.UpperBound != nil {
			if remainingIncome.LessThanOrEqual(decimal.Zero) {
				break
			}
			width := bracket.UpperBound.Sub(bracket.LowerBound)
			bracketIncome = decimal.Min(remainingIncome, width)
		} else {
			// Unbounded top bracket takes whatever is left.
			bracketIncome = remainingIncome
		}

		if bracketIncome.IsPositive() {
			totalTax = totalTax.Add(bracketIncome.Mul(bracket.Rate))
			remainingIncome = remainingIncome.Sub(bracketIncome)
		}
	}

	return totalTax, nil
}
