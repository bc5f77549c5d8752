package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestNewTaxScheduleSortsBrackets(t *testing.T) {
	// Deliberately out of order
	brackets := []TaxBracket{
		{LowerBound: dec("50000"), UpperBound: nil, Rate: dec("0.25")},
		{LowerBound: dec("0"), UpperBound: decPtr("11600"), Rate: dec("0.10")},
		{LowerBound: dec("11600"), UpperBound: decPtr("50000"), Rate: dec("0.15")},
	}

	schedule := NewTaxSchedule(2024, brackets)

	require.Len(t, schedule.Brackets, 3)
	for i := 1; i < len(schedule.Brackets); i++ {
		prev := schedule.Brackets[i-1].LowerBound
		curr := schedule.Brackets[i].LowerBound
		assert.True(t, prev.LessThanOrEqual(curr),
			"brackets must be sorted ascending by lower bound")
	}
	assert.True(t, schedule.Brackets[0].LowerBound.IsZero())

	// Input slice is not mutated
	assert.True(t, brackets[0].LowerBound.Equal(dec("50000")))
}

func TestNewTaxScheduleDoesNotValidate(t *testing.T) {
	// Overlapping brackets are accepted as-is - validation is the
	// producer's responsibility.
	schedule := NewTaxSchedule(2024, []TaxBracket{
		{LowerBound: dec("0"), UpperBound: decPtr("60000"), Rate: dec("0.10")},
		{LowerBound: dec("40000"), UpperBound: nil, Rate: dec("0.20")},
	})
	assert.Len(t, schedule.Brackets, 2)
}

func TestTaxEntityDeductions(t *testing.T) {
	entity := NewTaxEntity(EntityIndividual, dec("100000"), 2024)
	entity.AddDeduction(dec("10000"), DeductionPersonal)
	entity.AddDeduction(dec("2500"), DeductionCharitable)

	assert.True(t, entity.TotalDeductions().Equal(dec("12500")))
	assert.True(t, entity.TaxableIncome().Equal(dec("87500")))
}

func TestTaxableIncomeMayBeNegative(t *testing.T) {
	entity := NewTaxEntity(EntityIndividual, dec("30000"), 2024)
	entity.AddDeduction(dec("45000"), DeductionBusiness)

	assert.True(t, entity.TaxableIncome().IsNegative())
}

func TestJurisdictionEqualityAndKeys(t *testing.T) {
	assert.Equal(t, Federal(CountryUSA), Federal(CountryUSA))
	assert.NotEqual(t, Federal(CountryUSA), Federal(CountryCanada))
	assert.NotEqual(t, Federal(CountryUSA), USState("California"))

	// Comparable - usable as a map key
	seen := map[ScheduleKey]bool{}
	key := ScheduleKey{Jurisdiction: Federal(CountryUSA), EntityType: EntityIndividual, TaxYear: 2024}
	seen[key] = true
	assert.True(t, seen[ScheduleKey{Jurisdiction: Federal(CountryUSA), EntityType: EntityIndividual, TaxYear: 2024}])
}

func TestJurisdictionString(t *testing.T) {
	assert.Equal(t, "federal/USA", Federal(CountryUSA).String())
	assert.Equal(t, "state/USA/California", USState("California").String())
	assert.Equal(t, "province/Canada/Ontario", CanadianProvince("Ontario").String())
}

func TestScheduleKeyString(t *testing.T) {
	key := ScheduleKey{Jurisdiction: Federal(CountryCanada), EntityType: EntityIndividual, TaxYear: 2023}
	assert.Equal(t, "federal/Canada:individual:2023", key.String())
}
