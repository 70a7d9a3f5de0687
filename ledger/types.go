/*
Package ledger turns raw per-period charge/payment records into a
canonical, status-classified debt ledger.

PURPOSE:
  Client groups are billed one charge per calendar month. The raw history
  for a group may contain several fragments per month (the original charge,
  partial payments, corrections). This package folds those fragments into
  exactly one LedgerRow per period and classifies each row's standing
  relative to "now".

KEY CONCEPTS IN THIS FILE (types.go):
  - PeriodRecord: raw input fragment, one or more per period
  - LedgerRow: canonical derived row, exactly one per period
  - Status: future | due | partial | paid | credit

DESIGN PRINCIPLES:
  1. Derivation, not mutation: rows are recomputed from raw records on
     every read; there is no stored row lifecycle
  2. Exactness: balance == charge - paid holds exactly (decimal money)
  3. Tolerance at the edge: one malformed record never poisons the ledger

SEE ALSO:
  - aggregate.go: the fold itself
  - period.go: period key validation and ordering
  - allocation: consumes []LedgerRow to plan payments
*/
package ledger

import "errors"

// =============================================================================
// STATUS - Standing of one period relative to nowPeriod
// =============================================================================

type Status string

const (
	// StatusFuture: period not yet reached, or explicitly flagged as a
	// future charge with nothing paid against it.
	StatusFuture Status = "future"

	// StatusDue: period reached, charged, nothing paid.
	StatusDue Status = "due"

	// StatusPartial: period charged, partially paid, balance remains.
	StatusPartial Status = "partial"

	// StatusPaid: balance settled exactly.
	StatusPaid Status = "paid"

	// StatusCredit: paid exceeds charge (prepayment or overpayment).
	StatusCredit Status = "credit"
)

// Payable reports whether a row in this status can receive a payment.
func (s Status) Payable() bool { return s == StatusDue || s == StatusPartial }

// =============================================================================
// PERIOD RECORD - Raw input fragment
// =============================================================================

// PeriodRecord is one raw charge/payment fragment as fetched from the
// backing store. Several records may share a period key; the aggregator
// sums them. Balance, if unset, is derived as Charge - Paid.
type PeriodRecord struct {
	Period string
	Charge Money
	Paid   Money

	// FutureHint marks a record the upstream system posted as a future
	// charge. A hinted period stays future unless its balance has gone
	// negative (prepayment).
	FutureHint bool
}

// =============================================================================
// LEDGER ROW - Canonical derived row
// =============================================================================

// LedgerRow is an immutable snapshot. It is never persisted by this
// engine; "updating" a row means appending raw records and re-deriving.
//
// INVARIANT: Balance == Charge - Paid, exactly.
type LedgerRow struct {
	Period  PeriodKey
	Charge  Money
	Paid    Money
	Balance Money
	Status  Status
}

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrMalformedPeriodKey matches MalformedPeriodKeyError via errors.Is.
	ErrMalformedPeriodKey = errors.New("malformed period key")
)
