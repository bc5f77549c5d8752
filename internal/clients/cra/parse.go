package cra

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/PeterM45/tax-engine/internal/domain"
	"github.com/PeterM45/tax-engine/pkg/currency"
)

// CRA rates can carry decimals (e.g. 20.5%), unlike the IRS whole-number
// phrasing.
var (
	// "26% on the portion of taxable income over $111,733"
	rateOverPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%\s+on\s+the\s+portion\s+of\s+taxable\s+income\s+over\s+\$([0-9,]+)`)

	// "15% on the portion of taxable income that is $55,867 or less"
	lowestRatePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%\s+on\s+the\s+portion\s+of\s+taxable\s+income\s+that\s+is\s+\$([0-9,]+)\s+or\s+less`)
)

// blockFragments extracts the lower-cased text content of block-level
// elements. CRA rate tables render as list items, so those are included
// alongside paragraphs and divs.
func blockFragments(htmlContent string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	var fragments []string
	doc.Find("p,div,li").Each(func(_ int, sel *goquery.Selection) {
		fragments = append(fragments, strings.ToLower(sel.Text()))
	})
	return fragments, nil
}

// parseBrackets applies both patterns to every fragment independently.
func parseBrackets(fragments []string) []domain.TaxBracket {
	var brackets []domain.TaxBracket

	for _, text := range fragments {
		if strings.Contains(text, "or less") {
			if bracket, ok := parseLowestRate(text); ok {
				brackets = append(brackets, bracket)
				continue
			}
		}

		if strings.Contains(text, "taxable income over") {
			if bracket, ok := parseRateOver(text); ok {
				brackets = append(brackets, bracket)
			}
		}
	}

	return brackets
}

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

// parsePercent converts a percentage (possibly fractional) to an exact
// decimal rate via an exponent shift, never binary floating point.
func parsePercent(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Shift(-2), true
}
