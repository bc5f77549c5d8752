// Package cra fetches and parses Canadian federal tax rate schedules from
// canada.ca. Like the IRS source, the pages are prose, so bracket extraction
// is heuristic pattern matching over block-level text fragments.
package cra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/PeterM45/tax-engine/internal/domain"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Client fetches Canadian federal tax schedules.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a CRA client with a 10-second request timeout.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://www.canada.ca",
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "cra").Logger(),
	}
}

// SupportsJurisdiction reports whether this source handles the jurisdiction.
// Only Canadian federal is supported.
func (c *Client) SupportsJurisdiction(jurisdiction domain.Jurisdiction) bool {
	return jurisdiction == domain.Federal(domain.CountryCanada)
}

// FetchRates fetches and parses the Canadian federal schedule for a tax
// year. Only (Federal(Canada), Individual) is supported.
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
		Msg("Parsed Canadian federal tax schedule")

	return schedule, nil
}

// candidateURLs returns the ordered fallback list of source locations. The
// CRA publishes current-year rates on a stable page and prior years under an
// archive path.
func (c *Client) candidateURLs(taxYear int) []string {
	return []string{
		fmt.Sprintf("%s/en/revenue-agency/services/tax/individuals/frequently-asked-questions-individuals/canadian-income-tax-rates-individuals-current-previous-years.html", c.baseURL),
		fmt.Sprintf("%s/en/revenue-agency/services/forms-publications/tax-packages-years/archived-%d.html", c.baseURL, taxYear),
	}
}

// fetchDocument tries each candidate URL strictly in order and returns the
// body of the first successful response, or a FetchError carrying the last
// recorded failure once every candidate has been tried.
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
			lastErr = err
			c.log.Debug().Err(err).Str("url", url).Msg("Request failed")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d from %s", resp.StatusCode, url)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", &domain.FetchError{Detail: err.Error()}
		}

		return string(body), nil
	}

	detail := "no candidate URLs succeeded"
	if lastErr != nil {
		detail = lastErr.Error()
	}
	return "", &domain.FetchError{Detail: detail}
}
