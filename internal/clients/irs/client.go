// Package irs fetches and parses US federal tax rate schedules from the IRS
// website. The source pages are unstructured prose, not a machine-readable
// API, so extraction is heuristic pattern matching over block-level text
// fragments; "no matching fragment" is a first-class, reported failure.
package irs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/PeterM45/tax-engine/internal/domain"
)

// The IRS serves different content to clients without a browser user agent.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Client fetches US federal tax schedules.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates an IRS client with a 10-second request timeout.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://www.irs.gov",
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "irs").Logger(),
	}
}

// SupportsJurisdiction reports whether this source handles the jurisdiction.
// Only US federal is supported.
func (c *Client) SupportsJurisdiction(jurisdiction domain.Jurisdiction) bool {
	return jurisdiction == domain.Federal(domain.CountryUSA)
}

// FetchRates fetches and parses the US federal schedule for a tax year.
// Only (Federal(USA), Individual) is supported; any other combination fails
// with domain.ErrUnsupportedJurisdiction before any network work.
func (c *Client) FetchRates(ctx context.Context, jurisdiction domain.Jurisdiction, entityType domain.EntityType, taxYear int) (domain.TaxSchedule, error) {
	if !c.SupportsJurisdiction(jurisdiction) || entityType != domain.EntityIndividual {
		return domain.TaxSchedule{}, domain.ErrUnsupportedJurisdiction
	}

	content, err := c.fetchDocument(ctx, taxYear)
	if err != nil {
		return domain.TaxSchedule{}, err
	}

	fragments, err := blockFragments(content)
	if err != nil {
		return domain.TaxSchedule{}, &domain.ParseError{Detail: err.Error()}
	}

	brackets := parseBrackets(fragments)
	if len(brackets) == 0 {
		return domain.TaxSchedule{}, &domain.ParseError{Detail: "could not find tax bracket information"}
	}

	schedule := domain.NewTaxSchedule(taxYear, brackets)
	if len(schedule.Brackets) == 0 {
		return domain.TaxSchedule{}, &domain.RateNotAvailableError{TaxYear: taxYear}
	}

	c.log.Info().
		Int("year", taxYear).
		Int("brackets", len(schedule.Brackets)).
		Msg("Parsed US federal tax schedule")

	return schedule, nil
}

// candidateURLs returns the ordered fallback list of source locations for a
// tax year. The IRS page structure varies by year, so alternates reflect the
// known format variations.
func (c *Client) candidateURLs(taxYear int) []string {
	return []string{
		fmt.Sprintf("%s/newsroom/irs-provides-tax-inflation-adjustments-for-tax-year-%d", c.baseURL, taxYear),
		fmt.Sprintf("%s/pub/irs-drop/rp-%d-23.pdf", c.baseURL, taxYear-1),
		fmt.Sprintf("%s/newsroom/tax-year-%d-inflation-adjustments", c.baseURL, taxYear),
	}
}

// fetchDocument tries each candidate URL strictly in order and returns the
// body of the first successful response. Every failure is recorded as the
// last error; if all candidates fail the fetch fails with a FetchError
// carrying the last recorded failure.
func (c *Client) fetchDocument(ctx context.Context, taxYear int) (string, error) {
	var lastErr error

	for _, url := range c.candidateURLs(taxYear) {
		c.log.Debug().Str("url", url).Msg("Trying source URL")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			lastErr = err
			continue
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			// Transport failure - folded into the FetchError detail
			lastErr = err
			c.log.Debug().Err(err).Str("url", url).Msg("Request failed")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d from %s", resp.StatusCode, url)
			c.log.Debug().Int("status", resp.StatusCode).Str("url", url).Msg("Non-success status")
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", &domain.FetchError{Detail: err.Error()}
		}

		c.log.Debug().Str("url", url).Int("bytes", len(body)).Msg("Fetched source document")
		return string(body), nil
	}

	detail := "no candidate URLs succeeded"
	if lastErr != nil {
		detail = lastErr.Error()
	}
	return "", &domain.FetchError{Detail: detail}
}
