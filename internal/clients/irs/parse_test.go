package irs

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `<html><body>
<p>For tax year 2024 the top tax rate remains 37% for incomes over $609,350.</p>
<div>35% for incomes over $243,725</div>
<p>The lowest rate is 10% for incomes of single individuals with incomes of $11,600 or less.</p>
<p>The standard deduction rises to $14,600.</p>
</body></html>`

func TestBlockFragments(t *testing.T) {
	fragments, err := blockFragments(sampleDocument)
	require.NoError(t, err)
	require.Len(t, fragments, 4)

	// Lower-cased rendering of each fragment's text content
	assert.Contains(t, fragments[0], "37% for incomes over $609,350")
	assert.Contains(t, fragments[2], "lowest rate is 10%")
}

func TestParseBrackets(t *testing.T) {
	fragments, err := blockFragments(sampleDocument)
	require.NoError(t, err)

	brackets := parseBrackets(fragments)
	require.Len(t, brackets, 3)

	// Fragment order: two unbounded brackets, then the floor bracket
	assert.True(t, brackets[0].LowerBound.Equal(decimal.RequireFromString("609350")))
	assert.Nil(t, brackets[0].UpperBound)
	assert.True(t, brackets[0].Rate.Equal(decimal.RequireFromString("0.37")))

	assert.True(t, brackets[1].LowerBound.Equal(decimal.RequireFromString("243725")))
	assert.Nil(t, brackets[1].UpperBound)

	assert.True(t, brackets[2].LowerBound.IsZero())
	require.NotNil(t, brackets[2].UpperBound)
	assert.True(t, brackets[2].UpperBound.Equal(decimal.RequireFromString("11600")))
	assert.True(t, brackets[2].Rate.Equal(decimal.RequireFromString("0.1")))
}

func TestParseBracketsIdempotent(t *testing.T) {
	fragments, err := blockFragments(sampleDocument)
	require.NoError(t, err)

	first := parseBrackets(fragments)
	second := parseBrackets(fragments)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.True(t, first[i].LowerBound.Equal(second[i].LowerBound))
		assert.True(t, first[i].Rate.Equal(second[i].Rate))
		if first[i].UpperBound == nil {
			assert.Nil(t, second[i].UpperBound)
		} else {
			require.NotNil(t, second[i].UpperBound)
			assert.True(t, first[i].UpperBound.Equal(*second[i].UpperBound))
		}
	}
}

func TestParseBracketsNoMatches(t *testing.T) {
	brackets := parseBrackets([]string{
		"the standard deduction for married couples rises to $29,200",
		"page not found",
	})
	assert.Empty(t, brackets)
}

func TestParseRateOver(t *testing.T) {
	bracket, ok := parseRateOver("32% for incomes over $191,950")
	require.True(t, ok)
	assert.True(t, bracket.LowerBound.Equal(decimal.RequireFromString("191950")))
	assert.Nil(t, bracket.UpperBound)
	assert.True(t, bracket.Rate.Equal(decimal.RequireFromString("0.32")))

	_, ok = parseRateOver("incomes over a threshold are taxed more")
	assert.False(t, ok)
}

func TestParseLowestRate(t *testing.T) {
	bracket, ok := parseLowestRate("the lowest rate is 10% for incomes of $11,600 or less")
	require.True(t, ok)
	assert.True(t, bracket.LowerBound.IsZero())
	require.NotNil(t, bracket.UpperBound)
	assert.True(t, bracket.UpperBound.Equal(decimal.RequireFromString("11600")))
}

func TestParsePercentExact(t *testing.T) {
	rate, ok := parsePercent("37")
	require.True(t, ok)
	// Exact decimal shift, no float drift
	assert.Equal(t, "0.37", rate.String())

	_, ok = parsePercent("x")
	assert.False(t, ok)
}
