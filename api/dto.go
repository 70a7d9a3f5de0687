/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY ON THE WIRE:
  All amounts are decimal strings ("16000", "123.50"), never JSON
  numbers. Clients must not run them through binary floats.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - pricing/factory.go: RulesJSON, embedded in rules payloads
*/
package api

import "github.com/previsora/billing-engine/pricing"

// =============================================================================
// LEDGER
// =============================================================================

// LedgerRowDTO is one canonical period row.
type LedgerRowDTO struct {
	Period  string `json:"period"`
	Charge  string `json:"charge"`
	Paid    string `json:"paid"`
	Balance string `json:"balance"`
	Status  string `json:"status"`
}

// LedgerResponse is the aggregated ledger view plus the arrears figures
// clients need to render the office-collection gate.
type LedgerResponse struct {
	GroupID            string         `json:"group_id"`
	AsOf               string         `json:"as_of"`
	Rows               []LedgerRowDTO `json:"rows"`
	MonthsDue          int            `json:"months_due"`
	OutstandingTotal   string         `json:"outstanding_total"`
	MinPeriodsToCharge int            `json:"min_periods_to_charge"`
}

// IngestRecordsRequest appends raw period records to a group.
type IngestRecordsRequest struct {
	Records []PeriodRecordDTO `json:"records"`
}

// PeriodRecordDTO is one raw charge/payment fragment.
type PeriodRecordDTO struct {
	Period     string `json:"period"`
	Charge     string `json:"charge"`
	Paid       string `json:"paid"`
	FutureHint bool   `json:"future_hint,omitempty"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentRequest submits a payment intent. With dry_run=true the
// allocation plan is returned without persisting anything.
type PaymentRequest struct {
	Strategy  string               `json:"strategy"`
	Amount    string               `json:"amount,omitempty"`
	Breakdown []BreakdownEntryDTO  `json:"breakdown,omitempty"`
	DryRun    bool                 `json:"dry_run,omitempty"`
}

// BreakdownEntryDTO names one period and an amount.
type BreakdownEntryDTO struct {
	Period string `json:"period"`
	Amount string `json:"amount"`
}

// PaymentResponse is the allocation plan, plus the receipt when the
// payment was committed.
type PaymentResponse struct {
	Strategy          string              `json:"strategy"`
	AppliedBreakdown  []BreakdownEntryDTO `json:"applied_breakdown"`
	TotalApplied      string              `json:"total_applied"`
	RemainderAsCredit string              `json:"remainder_as_credit"`
	DryRun            bool                `json:"dry_run"`
	ReceiptID         string              `json:"receipt_id,omitempty"`
}

// ReceiptDTO is one committed payment.
type ReceiptDTO struct {
	ID        string `json:"id"`
	GroupID   string `json:"group_id"`
	Strategy  string `json:"strategy"`
	Total     string `json:"total"`
	CreatedAt string `json:"created_at"`
}

// =============================================================================
// PRICING
// =============================================================================

// QuoteResponse is the ideal charge with its derivation.
type QuoteResponse struct {
	RulesVersion  int    `json:"rules_version"`
	GroupFactor   string `json:"group_factor"`
	AgeFactor     string `json:"age_factor"`
	CremationCost string `json:"cremation_cost"`
	Subtotal      string `json:"subtotal"`
	IdealCharge   string `json:"ideal_charge"`
}

// RulesDTO wraps one stored rules version.
type RulesDTO struct {
	Version int               `json:"version"`
	Config  pricing.RulesJSON `json:"config"`
}

// CreateRulesRequest stores a new rules version.
type CreateRulesRequest struct {
	Config pricing.RulesJSON `json:"config"`
}

// =============================================================================
// COMMISSION
// =============================================================================

// CommissionEstimateRequest asks for a collector's commission figures.
// Portfolio figures may be given directly or derived from a group ledger
// by the handler.
type CommissionEstimateRequest struct {
	ExpectedPortfolio string `json:"expected_portfolio"`
	Collected         string `json:"collected"`
	DaysInHand        int    `json:"days_in_hand"`
}

// CommissionEstimateResponse is the expected/current pair.
type CommissionEstimateResponse struct {
	Expected string `json:"expected"`
	Current  string `json:"current"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error body. Kind identifies the business
// condition; the context fields are set when they apply.
type ErrorResponse struct {
	Error              string `json:"error"`
	Kind               string `json:"kind,omitempty"`
	Details            string `json:"details,omitempty"`
	Period             string `json:"period,omitempty"`
	MonthsDue          int    `json:"months_due,omitempty"`
	MinPeriodsToCharge int    `json:"min_periods_to_charge,omitempty"`
}
