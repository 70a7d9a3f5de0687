/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes the engines via REST. Handles HTTP request/response, JSON
  serialization, and delegates to the pure domain logic.

ENDPOINTS:
  Groups:
    GET    /api/groups/{id}/ledger    Aggregated, classified ledger
    POST   /api/groups/{id}/records   Ingest raw period records
    POST   /api/groups/{id}/payments  Preview or commit a payment
    GET    /api/groups/{id}/payments  Receipt history
    GET    /api/groups/{id}/quote     Ideal charge for the group shape

  Rules:
    GET    /api/rules                 Latest pricing rules version
    GET    /api/rules/{version}       Specific version
    POST   /api/rules                 Store a new version

  Commission:
    POST   /api/commission/estimate   Collector commission figures

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (ledger, allocation, pricing, commission)
  4. Serialize response
  5. Map errors

ERROR HANDLING:
  Business errors from allocation carry structured context; the mapper
  copies it into ErrorResponse so clients never parse messages:
  - 400: Invalid input, client-side allocation errors
  - 404: Unknown rules version
  - 409: Stale ledger (retry after re-reading)
  - 500: Internal errors

COMMIT PATH:
  POST payments without dry_run re-aggregates inside the per-group lock
  and re-runs the allocator before persisting, so the plan is validated
  against the ledger that is actually current at commit time.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - store: persistence interfaces and GroupLocks
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/previsora/billing-engine/allocation"
	"github.com/previsora/billing-engine/commission"
	"github.com/previsora/billing-engine/ledger"
	"github.com/previsora/billing-engine/pricing"
	"github.com/previsora/billing-engine/store"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store store.Store

	// Rules may be the store itself or a cache wrapper around it.
	Rules store.RulesStore

	// Locks serializes payment application per client group.
	Locks *store.GroupLocks

	// Commission scheme applied by the estimate endpoint.
	Rates commission.Rates

	// now returns the current billing period; overridable in tests.
	now func() ledger.PeriodKey
}

// NewHandler creates a new handler with the given store. rules may be
// nil, in which case the store serves rules reads directly.
func NewHandler(st store.Store, rules store.RulesStore) *Handler {
	if rules == nil {
		rules = st
	}
	return &Handler{
		Store: st,
		Rules: rules,
		Locks: store.NewGroupLocks(),
		Rates: commission.DefaultRates(),
		now:   func() ledger.PeriodKey { return ledger.PeriodOf(time.Now()) },
	}
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// GetLedger returns the aggregated, classified ledger for a group.
// GET /api/groups/{id}/ledger?as_of=YYYY-MM
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}

	rows, err := h.aggregate(r, groupID, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}

	monthsDue := ledger.MonthsDue(rows)
	writeJSON(w, http.StatusOK, LedgerResponse{
		GroupID:            groupID,
		AsOf:               asOf.String(),
		Rows:               toLedgerRowDTOs(rows),
		MonthsDue:          monthsDue,
		OutstandingTotal:   ledger.OutstandingTotal(rows).String(),
		MinPeriodsToCharge: allocation.MinPeriodsToCharge(monthsDue),
	})
}

// IngestRecords appends raw period records to a group.
// POST /api/groups/{id}/records
func (h *Handler) IngestRecords(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	var req IngestRecordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "records must be non-empty", nil)
		return
	}

	records := make([]ledger.PeriodRecord, len(req.Records))
	for i, dto := range req.Records {
		if _, err := ledger.ParsePeriodKey(dto.Period); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period key", err)
			return
		}
		charge, err := parseMoneyField(dto.Charge, "charge")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		paid, err := parseMoneyField(dto.Paid, "paid")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		records[i] = ledger.PeriodRecord{
			Period:     dto.Period,
			Charge:     charge,
			Paid:       paid,
			FutureHint: dto.FutureHint,
		}
	}

	if err := h.Store.AppendRecords(r.Context(), groupID, records); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to append records", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// SubmitPayment previews or commits a payment allocation.
// POST /api/groups/{id}/payments
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	intent, err := toIntent(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	asOf := h.now()

	if req.DryRun {
		rows, err := h.aggregate(r, groupID, asOf)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load records", err)
			return
		}
		result, err := allocation.Allocate(rows, intent, ledger.MonthsDue(rows))
		if err != nil {
			writeAllocationError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPaymentResponse(result, true, ""))
		return
	}

	// Commit: serialize per group, re-derive inside the critical section.
	unlock := h.Locks.Lock(groupID)
	defer unlock()

	rows, err := h.aggregate(r, groupID, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}
	result, err := allocation.Allocate(rows, intent, ledger.MonthsDue(rows))
	if err != nil {
		writeAllocationError(w, err)
		return
	}

	receipt, err := h.Store.ApplyAllocation(r.Context(), groupID, result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to persist payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(result, false, receipt.ID))
}

// ListPayments returns the receipt history for a group.
// GET /api/groups/{id}/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	receipts, err := h.Store.Payments(r.Context(), groupID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]ReceiptDTO, len(receipts))
	for i, rc := range receipts {
		dtos[i] = ReceiptDTO{
			ID:        rc.ID,
			GroupID:   rc.GroupID,
			Strategy:  string(rc.Strategy),
			Total:     rc.Total.String(),
			CreatedAt: rc.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PRICING HANDLERS
// =============================================================================

// GetQuote recomputes the ideal charge for a group shape.
// GET /api/groups/{id}/quote?integrantes=4&edad_max=55&cremaciones=0&rules_version=2
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	inputs := pricing.Inputs{
		Integrantes: intParam(q.Get("integrantes"), 1),
		EdadMax:     intParam(q.Get("edad_max"), 0),
		Cremaciones: intParam(q.Get("cremaciones"), 0),
	}

	var rules pricing.Rules
	var err error
	if v := q.Get("rules_version"); v != "" {
		version, convErr := strconv.Atoi(v)
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "rules_version must be an integer", convErr)
			return
		}
		rules, err = h.Rules.RulesByVersion(r.Context(), version)
	} else {
		rules, err = h.Rules.LatestRules(r.Context())
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNoRules) || errors.Is(err, store.ErrRulesVersionNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, "Failed to load pricing rules", err)
		return
	}

	quote := pricing.ComputeQuote(rules, inputs)
	writeJSON(w, http.StatusOK, QuoteResponse{
		RulesVersion:  quote.RulesVersion,
		GroupFactor:   quote.GroupFactor.String(),
		AgeFactor:     quote.AgeFactor.String(),
		CremationCost: quote.CremationCost.String(),
		Subtotal:      quote.Subtotal.String(),
		IdealCharge:   quote.IdealCharge.String(),
	})
}

// GetRules returns the latest rules version.
// GET /api/rules
func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Rules.LatestRules(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNoRules) {
			status = http.StatusNotFound
		}
		writeError(w, status, "Failed to load pricing rules", err)
		return
	}
	writeJSON(w, http.StatusOK, RulesDTO{Version: rules.Version, Config: pricing.ToJSON(rules)})
}

// GetRulesVersion returns one stored version.
// GET /api/rules/{version}
func (h *Handler) GetRulesVersion(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "version must be an integer", err)
		return
	}

	rules, err := h.Rules.RulesByVersion(r.Context(), version)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrRulesVersionNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, "Failed to load pricing rules", err)
		return
	}
	writeJSON(w, http.StatusOK, RulesDTO{Version: rules.Version, Config: pricing.ToJSON(rules)})
}

// CreateRules stores a new immutable rules version.
// POST /api/rules
func (h *Handler) CreateRules(w http.ResponseWriter, r *http.Request) {
	var req CreateRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rules, err := pricing.FromJSON(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rules config", err)
		return
	}

	version, err := h.Rules.SaveRules(r.Context(), rules)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store rules", err)
		return
	}
	rules.Version = version
	writeJSON(w, http.StatusCreated, RulesDTO{Version: version, Config: pricing.ToJSON(rules)})
}

// =============================================================================
// COMMISSION HANDLER
// =============================================================================

// EstimateCommission returns expected vs. current commission.
// POST /api/commission/estimate
func (h *Handler) EstimateCommission(w http.ResponseWriter, r *http.Request) {
	var req CommissionEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	expected, err := parseMoneyField(req.ExpectedPortfolio, "expected_portfolio")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	collected, err := parseMoneyField(req.Collected, "collected")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	est := commission.Compute(h.Rates, commission.EstimateInput{
		ExpectedPortfolio: expected,
		Collected:         collected,
		DaysInHand:        req.DaysInHand,
	})
	writeJSON(w, http.StatusOK, CommissionEstimateResponse{
		Expected: est.Expected.String(),
		Current:  est.Current.String(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) aggregate(r *http.Request, groupID string, asOf ledger.PeriodKey) ([]ledger.LedgerRow, error) {
	records, err := h.Store.Records(r.Context(), groupID)
	if err != nil {
		return nil, err
	}
	return ledger.Aggregate(records, asOf), nil
}

func (h *Handler) asOf(w http.ResponseWriter, r *http.Request) (ledger.PeriodKey, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return h.now(), true
	}
	key, err := ledger.ParsePeriodKey(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of period (use YYYY-MM)", err)
		return "", false
	}
	return key, true
}

func toIntent(req PaymentRequest) (allocation.PaymentIntent, error) {
	intent := allocation.PaymentIntent{Strategy: allocation.Strategy(req.Strategy)}

	switch intent.Strategy {
	case allocation.StrategyAuto:
		if req.Amount != "" {
			amount, err := parseMoneyField(req.Amount, "amount")
			if err != nil {
				return allocation.PaymentIntent{}, err
			}
			intent.Amount = amount
		}
	case allocation.StrategyManual:
		for _, dto := range req.Breakdown {
			period, err := ledger.ParsePeriodKey(dto.Period)
			if err != nil {
				return allocation.PaymentIntent{}, err
			}
			amount, err := parseMoneyField(dto.Amount, "breakdown amount")
			if err != nil {
				return allocation.PaymentIntent{}, err
			}
			intent.Breakdown = append(intent.Breakdown, allocation.BreakdownEntry{
				Period: period,
				Amount: amount,
			})
		}
	default:
		return allocation.PaymentIntent{}, errors.New(`strategy must be "auto" or "manual"`)
	}
	return intent, nil
}

func parseMoneyField(raw, field string) (ledger.Money, error) {
	if raw == "" {
		return ledger.Zero(), nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return ledger.Money{}, errors.New(field + " must be a decimal string")
	}
	if d.IsNegative() {
		return ledger.Money{}, errors.New(field + " must not be negative")
	}
	return ledger.NewMoneyFromDecimal(d), nil
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func toLedgerRowDTOs(rows []ledger.LedgerRow) []LedgerRowDTO {
	dtos := make([]LedgerRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = LedgerRowDTO{
			Period:  row.Period.String(),
			Charge:  row.Charge.String(),
			Paid:    row.Paid.String(),
			Balance: row.Balance.String(),
			Status:  string(row.Status),
		}
	}
	return dtos
}

func toPaymentResponse(result allocation.AllocationResult, dryRun bool, receiptID string) PaymentResponse {
	breakdown := make([]BreakdownEntryDTO, len(result.AppliedBreakdown))
	for i, entry := range result.AppliedBreakdown {
		breakdown[i] = BreakdownEntryDTO{Period: entry.Period.String(), Amount: entry.Amount.String()}
	}
	return PaymentResponse{
		Strategy:          string(result.Strategy),
		AppliedBreakdown:  breakdown,
		TotalApplied:      result.TotalApplied.String(),
		RemainderAsCredit: result.RemainderAsCredit.String(),
		DryRun:            dryRun,
		ReceiptID:         receiptID,
	}
}

// writeAllocationError maps allocation failures to HTTP, copying the
// structured context into the response body.
func writeAllocationError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var arrears *allocation.ArrearsRuleError
	var blocked *allocation.PolicyBlockedError
	var selection *allocation.InvalidPeriodSelectionError
	var exceeds *allocation.AmountExceedsBalanceError

	status := http.StatusBadRequest
	switch {
	case errors.As(err, &arrears):
		resp.Kind = "arrears_rule_violation"
		resp.MonthsDue = arrears.MonthsDue
		resp.MinPeriodsToCharge = arrears.MinPeriodsToCharge
	case errors.As(err, &blocked):
		resp.Kind = "policy_blocked"
		resp.MonthsDue = blocked.MonthsDue
	case errors.As(err, &selection):
		resp.Kind = "invalid_period_selection"
		resp.Period = selection.Period.String()
	case errors.As(err, &exceeds):
		resp.Kind = "amount_exceeds_balance"
		resp.Period = exceeds.Period.String()
	case errors.Is(err, allocation.ErrStaleLedger):
		resp.Kind = "stale_ledger"
		status = http.StatusConflict
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
