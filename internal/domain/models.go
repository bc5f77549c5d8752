// Package domain contains the core tax domain models shared by every other
// package: brackets, schedules, jurisdictions, entities and the lookup keys
// used by caches and rate sources. The domain layer is pure - no
// infrastructure dependencies.
package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Country identifies the country a jurisdiction belongs to.
type Country string

const (
	CountryUSA    Country = "USA"
	CountryCanada Country = "Canada"
)

// JurisdictionLevel distinguishes federal from sub-national jurisdictions.
type JurisdictionLevel string

const (
	LevelFederal  JurisdictionLevel = "federal"
	LevelState    JurisdictionLevel = "state"
	LevelProvince JurisdictionLevel = "province"
)

// Jurisdiction identifies a taxing authority. It is a comparable value type
// so it can be used directly as (part of) a map key.
// Region is empty for federal jurisdictions.
type Jurisdiction struct {
	Level   JurisdictionLevel
	Country Country
	Region  string
}

// Federal returns the federal jurisdiction for a country.
func Federal(country Country) Jurisdiction {
	return Jurisdiction{Level: LevelFederal, Country: country}
}

// USState returns a US state jurisdiction.
func USState(name string) Jurisdiction {
	return Jurisdiction{Level: LevelState, Country: CountryUSA, Region: name}
}

// CanadianProvince returns a Canadian province jurisdiction.
func CanadianProvince(name string) Jurisdiction {
	return Jurisdiction{Level: LevelProvince, Country: CountryCanada, Region: name}
}

// String renders the jurisdiction in a stable form suitable for cache keys
// and log fields, e.g. "federal/USA" or "state/USA/California".
func (j Jurisdiction) String() string {
	if j.Region == "" {
		return fmt.Sprintf("%s/%s", j.Level, j.Country)
	}
	return fmt.Sprintf("%s/%s/%s", j.Level, j.Country, j.Region)
}

// EntityType is the kind of taxable entity.
type EntityType string

const (
	EntityIndividual  EntityType = "individual"
	EntityCorporation EntityType = "corporation"
	EntityPartnership EntityType = "partnership"
)

// TaxBracket is a single income sub-range taxed at one marginal rate.
// A nil UpperBound means the bracket is unbounded above.
type TaxBracket struct {
	LowerBound decimal.Decimal
	UpperBound *decimal.Decimal
	Rate       decimal.Decimal
}

// TaxSchedule is the ordered set of brackets applicable to one tax year.
// Brackets are sorted ascending by lower bound at construction time.
type TaxSchedule struct {
	TaxYear  int
	Brackets []TaxBracket
}

// NewTaxSchedule builds a schedule from brackets in any order. The brackets
// are sorted by lower bound; construction never rejects malformed or
// overlapping brackets - validation is the producer's responsibility.
func NewTaxSchedule(taxYear int, brackets []TaxBracket) TaxSchedule {
	sorted := make([]TaxBracket, len(brackets))
	copy(sorted, brackets)
	sort.SliceStable(sorted, func(i, k int) bool {
		return sorted[i].LowerBound.LessThan(sorted[k].LowerBound)
	})
	return TaxSchedule{TaxYear: taxYear, Brackets: sorted}
}

// DeductionType categorizes a deduction.
type DeductionType string

const (
	DeductionBusiness   DeductionType = "business"
	DeductionPersonal   DeductionType = "personal"
	DeductionCharitable DeductionType = "charitable"
)

// Deduction is a single amount deducted from gross income.
type Deduction struct {
	Amount   decimal.Decimal
	Category DeductionType
}

// TaxEntity is a taxable entity with income and deductions for one tax year.
type TaxEntity struct {
	EntityType  EntityType
	GrossIncome decimal.Decimal
	Deductions  []Deduction
	TaxYear     int
}

// NewTaxEntity creates an entity without any deductions.
func NewTaxEntity(entityType EntityType, grossIncome decimal.Decimal, taxYear int) TaxEntity {
	return TaxEntity{
		EntityType:  entityType,
		GrossIncome: grossIncome,
		TaxYear:     taxYear,
	}
}

// AddDeduction appends a deduction to the entity.
func (e *TaxEntity) AddDeduction(amount decimal.Decimal, category DeductionType) {
	e.Deductions = append(e.Deductions, Deduction{Amount: amount, Category: category})
}

// TotalDeductions sums all deduction amounts.
func (e TaxEntity) TotalDeductions() decimal.Decimal {
	total := decimal.Zero
	for _, d := range e.Deductions {
		total = total.Add(d.Amount)
	}
	return total
}

// TaxableIncome is gross income minus total deductions. May be negative when
// deductions exceed income; the calculator treats non-positive income as zero
// tax.
func (e TaxEntity) TaxableIncome() decimal.Decimal {
	return e.GrossIncome.Sub(e.TotalDeductions())
}

// ScheduleKey identifies one resolvable schedule. It is a comparable struct
// used directly as a map key by the schedule cache.
type ScheduleKey struct {
	Jurisdiction Jurisdiction
	EntityType   EntityType
	TaxYear      int
}

// String renders the key in a stable form for the persistent store and logs,
// e.g. "federal/USA:individual:2024".
func (k ScheduleKey) String() string {
	return fmt.Sprintf("%s:%s:%d", k.Jurisdiction, k.EntityType, k.TaxYear)
}
