package irs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterM45/tax-engine/internal/domain"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(zerolog.Nop())
	c.baseURL = server.URL
	return c
}

func TestSupportsJurisdiction(t *testing.T) {
	c := NewClient(zerolog.Nop())

	assert.True(t, c.SupportsJurisdiction(domain.Federal(domain.CountryUSA)))
	assert.False(t, c.SupportsJurisdiction(domain.Federal(domain.CountryCanada)))
	assert.False(t, c.SupportsJurisdiction(domain.USState("California")))
}

func TestFetchRatesUnsupportedCombination(t *testing.T) {
	c := NewClient(zerolog.Nop())

	_, err := c.FetchRates(context.Background(), domain.Federal(domain.CountryCanada), domain.EntityIndividual, 2024)
	assert.ErrorIs(t, err, domain.ErrUnsupportedJurisdiction)

	// Entity types other than individual are rejected before any fetch
	_, err = c.FetchRates(context.Background(), domain.Federal(domain.CountryUSA), domain.EntityCorporation, 2024)
	assert.ErrorIs(t, err, domain.ErrUnsupportedJurisdiction)
}

func TestFetchRatesFirstCandidateSucceeds(t *testing.T) {
	var requests []string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path)
		w.Write([]byte(sampleDocument))
	}))

	schedule, err := c.FetchRates(context.Background(), domain.Federal(domain.CountryUSA), domain.EntityIndividual, 2024)
	require.NoError(t, err)

	assert.Equal(t, 2024, schedule.TaxYear)
	require.Len(t, schedule.Brackets, 3)

	// Success short-circuits the candidate list
	require.Len(t, requests, 1)
	assert.Equal(t, "/newsroom/irs-provides-tax-inflation-adjustments-for-tax-year-2024", requests[0])

	// Schedule construction sorted the brackets ascending by lower bound
	assert.True(t, schedule.Brackets[0].LowerBound.IsZero())
	assert.True(t, schedule.Brackets[2].LowerBound.Equal(decimal.RequireFromString("609350")))
}

func TestFetchRatesFallsBackToSecondCandidate(t *testing.T) {
	var requests []string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path)
		if len(requests) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(sampleDocument))
	}))

	schedule, err := c.FetchRates(context.Background(), domain.Federal(domain.CountryUSA), domain.EntityIndividual, 2024)
	require.NoError(t, err)

	// The result reflects only the second candidate's content
	assert.Len(t, schedule.Brackets, 3)
	require.Len(t, requests, 2)
	assert.Equal(t, "/pub/irs-drop/rp-2023-23.pdf", requests[1])
}

func TestFetchRatesAllCandidatesFail(t *testing.T) {
	var requests int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.FetchRates(context.Background(), domain.Federal(domain.CountryUSA), domain.EntityIndividual, 2024)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Detail, "status 404")
	assert.Equal(t, 3, requests, "every candidate is tried exactly once")
}

func TestFetchRatesTransportError(t *testing.T) {
	c := NewClient(zerolog.Nop())
	// Nothing is listening here
	c.baseURL = "http://127.0.0.1:1"

	_, err := c.FetchRates(context.Background(), domain.Federal(domain.CountryUSA), domain.EntityIndividual, 2024)

	var fetchErr *domain.FetchError
	assert.ErrorAs(t, err, &fetchErr)
}

func TestFetchRatesNoPatternsMatch(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>No bracket data here.</p></body></html>"))
	}))

	_, err := c.FetchRates(context.Background(), domain.Federal(domain.CountryUSA), domain.EntityIndividual, 2024)

	var parseErr *domain.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.False(t, errors.Is(err, domain.ErrUnsupportedJurisdiction))
}

func TestFetchRatesSendsUserAgent(t *testing.T) {
	var gotAgent string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(sampleDocument))
	}))

	_, err := c.FetchRates(context.Background(), domain.Federal(domain.CountryUSA), domain.EntityIndividual, 2024)
	require.NoError(t, err)
	assert.Contains(t, gotAgent, "Mozilla/5.0")
}
