package irs

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/PeterM45/tax-engine/internal/domain"
	"github.com/PeterM45/tax-engine/pkg/currency"
)

var (
	// "35% for incomes over $243,725"
	rateOverPattern = regexp.MustCompile(`(\d+)%\s+for\s+incomes\s+over\s+\$([0-9,]+)`)

	// "the lowest rate is 10% for incomes of single individuals with
	// incomes of $11,600 or less"
	lowestRatePattern = regexp.MustCompile(`(\d+)%.*\$([0-9,]+)\s+or\s+less`)
)

// blockFragments extracts the lower-cased text content of every block-level
// element in the document. How the fragments were obtained is irrelevant to
// the pattern matching; parseBrackets works on any fragment sequence.
func blockFragments(htmlContent string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	var fragments []string
	doc.Find("p,div").Each(func(_ int, sel *goquery.Selection) {
		fragments = append(fragments, strings.ToLower(sel.Text()))
	})
	return fragments, nil
}

// parseBrackets applies both bracket patterns to every fragment
// independently. A fragment may contribute zero, one, or one bracket per
// pattern. Returned brackets are unsorted; schedule construction orders them.
func parseBrackets(fragments []string) []domain.TaxBracket {
	var brackets []domain.TaxBracket

	for _, text := range fragments {
		if strings.Contains(text, "% for incomes over") {
			if bracket, ok := parseRateOver(text); ok {
				brackets = append(brackets, bracket)
			}
		}

		if strings.Contains(text, "lowest rate is") && strings.Contains(text, "or less") {
			if bracket, ok := parseLowestRate(text); ok {
				brackets = append(brackets, bracket)
			}
		}
	}

	return brackets
}

// parseRateOver handles "N% for incomes over $X": a bracket from X with no
// upper bound.
func parseRateOver(text string) (domain.TaxBracket, bool) {
	m := rateOverPattern.FindStringSubmatch(text)
	if m == nil {
		return domain.TaxBracket{}, false
	}

	rate, ok := parsePercent(m[1])
	if !ok {
		return domain.TaxBracket{}, false
	}
	lower, ok := currency.ParseAmount(m[2])
	if !ok {
		return domain.TaxBracket{}, false
	}

	return domain.TaxBracket{LowerBound: lower, UpperBound: nil, Rate: rate}, true
}

// parseLowestRate handles "lowest rate is N% ... $X or less": a bracket from
// zero up to X.
func parseLowestRate(text string) (domain.TaxBracket, bool) {
	m := lowestRatePattern.FindStringSubmatch(text)
	if m == nil {
		return domain.TaxBracket{}, false
	}

	rate, ok := parsePercent(m[1])
	if !ok {
		return domain.TaxBracket{}, false
	}
	upper, ok := currency.ParseAmount(m[2])
	if !ok {
		return domain.TaxBracket{}, false
	}

	return domain.TaxBracket{LowerBound: decimal.Zero, UpperBound: &upper, Rate: rate}, true
}

// parsePercent converts a whole-number percentage to an exact decimal rate.
// The division by 100 is a decimal exponent shift, never a float round trip.
func parsePercent(s string) (decimal.Decimal, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return decimal.Zero, false
	}
	return decimal.New(n, -2), true
}
