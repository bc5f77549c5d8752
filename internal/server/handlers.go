package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/PeterM45/tax-engine/internal/calculator"
	"github.com/PeterM45/tax-engine/internal/domain"
	"github.com/PeterM45/tax-engine/pkg/currency"
)

// ScheduleResolver resolves tax schedules for lookup keys. Satisfied by
// services.RateResolverService; tests substitute a stub.
type ScheduleResolver interface {
	Resolve(ctx context.Context, jurisdiction domain.Jurisdiction, entityType domain.EntityType, taxYear int) (domain.TaxSchedule, error)
}

// TaxHandlers handles tax calculation and schedule HTTP requests.
type TaxHandlers struct {
	resolver ScheduleResolver
	log      zerolog.Logger
}

// NewTaxHandlers creates a new tax handler.
func NewTaxHandlers(resolver ScheduleResolver, log zerolog.Logger) *TaxHandlers {
	return &TaxHandlers{
		resolver: resolver,
		log:      log.With().Str("handler", "tax").Logger(),
	}
}

type deductionRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
}

type calculateRequest struct {
	Country     string             `json:"country"`
	Region      string             `json:"region,omitempty"`
	EntityType  string             `json:"entity_type"`
	TaxYear     int                `json:"tax_year"`
	GrossIncome decimal.Decimal    `json:"gross_income"`
	Deductions  []deductionRequest `json:"deductions,omitempty"`
}

// HandleCalculate handles POST /api/tax/calculate.
// Resolves the applicable schedule for the request's jurisdiction and
// applies progressive bracket math to the entity.
func (h *TaxHandlers) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	jurisdiction, ok := parseJurisdiction(req.Country, req.Region)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "unknown country: "+req.Country)
		return
	}
	entityType, ok := parseEntityType(req.EntityType)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "unknown entity type: "+req.EntityType)
		return
	}
	if req.TaxYear <= 0 {
		h.writeError(w, http.StatusBadRequest, "tax_year is required")
		return
	}

	entity := domain.NewTaxEntity(entityType, req.GrossIncome, req.TaxYear)
	for _, d := range req.Deductions {
		category, ok := parseDeductionType(d.Category)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "unknown deduction category: "+d.Category)
			return
		}
		entity.AddDeduction(d.Amount, category)
	}

	schedule, err := h.resolver.Resolve(r.Context(), jurisdiction, entityType, req.TaxYear)
	if err != nil {
		h.writeTaxError(w, err)
		return
	}

	tax, err := calculator.Calculate(entity, schedule)
	if err != nil {
		h.writeTaxError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"calculation_id":      uuid.New().String(),
			"jurisdiction":        jurisdiction.String(),
			"entity_type":         string(entityType),
			"tax_year":            req.TaxYear,
			"taxable_income":      entity.TaxableIncome().String(),
			"total_tax":           tax.String(),
			"total_tax_formatted": currency.Format(tax),
			"bracket_count":       len(schedule.Brackets),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetSchedule handles GET /api/tax/schedule?country=USA&entity_type=individual&year=2024.
func (h *TaxHandlers) HandleGetSchedule(w http.ResponseWriter, r *http.Request) {
	jurisdiction, ok := parseJurisdiction(r.URL.Query().Get("country"), r.URL.Query().Get("region"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "unknown country: "+r.URL.Query().Get("country"))
		return
	}
	entityType, ok := parseEntityType(r.URL.Query().Get("entity_type"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "unknown entity type: "+r.URL.Query().Get("entity_type"))
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year <= 0 {
		h.writeError(w, http.StatusBadRequest, "year is required")
		return
	}

	schedule, err := h.resolver.Resolve(r.Context(), jurisdiction, entityType, year)
	if err != nil {
		h.writeTaxError(w, err)
		return
	}

	brackets := make([]map[string]interface{}, 0, len(schedule.Brackets))
	for _, b := range schedule.Brackets {
		bracket := map[string]interface{}{
			"lower_bound": b.LowerBound.String(),
			"rate":        b.Rate.String(),
		}
		if b.UpperBound != nil {
			bracket["upper_bound"] = b.UpperBound.String()
		}
		brackets = append(brackets, bracket)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"jurisdiction": jurisdiction.String(),
			"entity_type":  string(entityType),
			"tax_year":     schedule.TaxYear,
			"brackets":     brackets,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeTaxError maps the error taxonomy onto HTTP statuses.
func (h *TaxHandlers) writeTaxError(w http.ResponseWriter, err error) {
	var (
		fetchErr    *domain.FetchError
		parseErr    *domain.ParseError
		notAvailErr *domain.RateNotAvailableError
	)

	switch {
	case errors.Is(err, domain.ErrUnsupportedJurisdiction):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrYearMismatch):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &notAvailErr):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &fetchErr), errors.As(err, &parseErr):
		h.writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.log.Error().Err(err).Msg("Unexpected error")
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *TaxHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
		},
	})
}

func (h *TaxHandlers) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func parseJurisdiction(country, region string) (domain.Jurisdiction, bool) {
	switch country {
	case "USA", "usa", "US", "us":
		if region != "" {
			return domain.USState(region), true
		}
		return domain.Federal(domain.CountryUSA), true
	case "Canada", "canada", "CA", "ca":
		if region != "" {
			return domain.CanadianProvince(region), true
		}
		return domain.Federal(domain.CountryCanada), true
	default:
		return domain.Jurisdiction{}, false
	}
}

func parseEntityType(s string) (domain.EntityType, bool) {
	switch s {
	case string(domain.EntityIndividual):
		return domain.EntityIndividual, true
	case string(domain.EntityCorporation):
		return domain.EntityCorporation, true
	case string(domain.EntityPartnership):
		return domain.EntityPartnership, true
	default:
		return "", false
	}
}

func parseDeductionType(s string) (domain.DeductionType, bool) {
	switch s {
	case string(domain.DeductionBusiness):
		return domain.DeductionBusiness, true
	case string(domain.DeductionPersonal):
		return domain.DeductionPersonal, true
	case string(domain.DeductionCharitable):
		return domain.DeductionCharitable, true
	default:
		return "", false
	}
}
