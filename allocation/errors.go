/*
errors.go - Centralized error types for payment allocation

PURPOSE:
  All allocation failure modes in one place. Every kind is an expected
  business condition, returned as a typed error carrying enough structured
  context for a caller to render an actionable message without parsing
  strings. Only malformed programmer input (nil ledger, negative amounts in
  auto mode) fails fast elsewhere.

ERROR CATEGORIES:
  1. Selection errors   - manual breakdown names an ineligible period
  2. Amount errors      - manual entry exceeds a period's balance
  3. Policy errors      - arrears gating and office-collection block
  4. Concurrency errors - ledger changed between read and apply

USAGE:
  result, err := allocation.Allocate(rows, intent, monthsDue)
  if errors.Is(err, allocation.ErrArrearsRuleViolation) {
      var arr *allocation.ArrearsRuleError
      errors.As(err, &arr) // arr.MonthsDue, arr.MinPeriodsToCharge
  }

SEE ALSO:
  - allocator.go: produces these errors
  - api/handlers.go: maps them to HTTP statuses
*/
package allocation

import (
	"errors"
	"fmt"

	"github.com/previsora/billing-engine/ledger"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPeriodSelection is returned when a manual breakdown names a
	// period that is unknown or not payable (future, paid, credit).
	ErrInvalidPeriodSelection = errors.New("invalid period selection")

	// ErrAmountExceedsBalance is returned when a manual breakdown entry
	// exceeds that period's outstanding balance.
	ErrAmountExceedsBalance = errors.New("amount exceeds period balance")

	// ErrArrearsRuleViolation is returned when a manual breakdown covers
	// fewer periods than the arrears gate requires.
	ErrArrearsRuleViolation = errors.New("arrears rule violation")

	// ErrPolicyBlocked is returned when the group's arrears put it beyond
	// office collection entirely.
	ErrPolicyBlocked = errors.New("office collection blocked by policy")

	// ErrStaleLedger is returned when the auto-strategy amount no longer
	// matches the live outstanding total.
	ErrStaleLedger = errors.New("stale ledger snapshot")
)

// =============================================================================
// STRUCTURED ERRORS - Carry context for callers
// =============================================================================

// InvalidPeriodSelectionError reports the offending period and, when the
// period exists, its current status.
type InvalidPeriodSelectionError struct {
	Period    ledger.PeriodKey
	Status    ledger.Status // empty if the period is unknown
	Duplicate bool          // the breakdown names the period more than once
}

func (e *InvalidPeriodSelectionError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("period %s named more than once in breakdown", e.Period)
	}
	if e.Status == "" {
		return fmt.Sprintf("period %s not found in ledger", e.Period)
	}
	return fmt.Sprintf("period %s has status %q and cannot be paid", e.Period, e.Status)
}

func (e *InvalidPeriodSelectionError) Unwrap() error { return ErrInvalidPeriodSelection }

// AmountExceedsBalanceError reports the violating period with both sides
// of the comparison.
type AmountExceedsBalanceError struct {
	Period    ledger.PeriodKey
	Requested ledger.Money
	Balance   ledger.Money
}

func (e *AmountExceedsBalanceError) Error() string {
	return fmt.Sprintf("payment of %v on period %s exceeds outstanding balance %v",
		e.Requested, e.Period, e.Balance)
}

func (e *AmountExceedsBalanceError) Unwrap() error { return ErrAmountExceedsBalance }

// ArrearsRuleError carries the figures a caller needs to explain the gate:
// "you owe MonthsDue months, you must cover at least MinPeriodsToCharge".
type ArrearsRuleError struct {
	MonthsDue          int
	MinPeriodsToCharge int
	PeriodsSelected    int
}

func (e *ArrearsRuleError) Error() string {
	return fmt.Sprintf("group owes %d months: at least %d periods must be covered, got %d",
		e.MonthsDue, e.MinPeriodsToCharge, e.PeriodsSelected)
}

func (e *ArrearsRuleError) Unwrap() error { return ErrArrearsRuleViolation }

// PolicyBlockedError reports a group beyond the office-collection limit.
type PolicyBlockedError struct {
	MonthsDue int
	Limit     int
}

func (e *PolicyBlockedError) Error() string {
	return fmt.Sprintf("group owes %d months (limit %d): office collection refused", e.MonthsDue, e.Limit)
}

func (e *PolicyBlockedError) Unwrap() error { return ErrPolicyBlocked }

// StaleLedgerError reports the mismatch between the amount derived from
// the displayed snapshot and the live outstanding total.
type StaleLedgerError struct {
	IntentAmount ledger.Money
	LiveTotal    ledger.Money
}

func (e *StaleLedgerError) Error() string {
	return fmt.Sprintf("ledger changed: intent amount %v, live outstanding %v",
		e.IntentAmount, e.LiveTotal)
}

func (e *StaleLedgerError) Unwrap() error { return ErrStaleLedger }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is caused by the caller's
// selection rather than a concurrency effect.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriodSelection) ||
		errors.Is(err, ErrAmountExceedsBalance) ||
		errors.Is(err, ErrArrearsRuleViolation) ||
		errors.Is(err, ErrPolicyBlocked)
}

// IsRetryable reports whether re-reading the ledger and retrying might
// succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStaleLedger)
}
