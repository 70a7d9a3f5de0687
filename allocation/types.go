/*
Package allocation decides how an incoming payment is distributed across
a client group's outstanding billing periods.

PURPOSE:
  Given the canonical ledger and a payment intent, produce a period-by-
  period application plan. Two strategies compete:

  StrategyAuto:
    - The group settles everything outstanding in one go
    - Amount is fixed to the sum of open balances, never user-chosen
    - Applied oldest period first (FIFO settlement)

  StrategyManual:
    - The cashier names specific periods and amounts
    - Subject to the arrears gate: a group 3+ months behind may not
      cover a single period from the office channel; it must cover at
      least 2, or pay the auto total
    - A group 4+ months behind is refused office collection outright

PURITY:
  Allocate returns a plan; it never writes. Persisting the plan, and
  guaranteeing at most one in-flight application per group, is the
  caller's job (see store/sqlite).

SEE ALSO:
  - allocator.go: the algorithm
  - errors.go: failure taxonomy
  - ledger: input rows
*/
package allocation

import "github.com/previsora/billing-engine/ledger"

// =============================================================================
// STRATEGY
// =============================================================================

type Strategy string

const (
	// StrategyAuto settles all outstanding periods oldest-first for their
	// exact combined balance.
	StrategyAuto Strategy = "auto"

	// StrategyManual applies caller-chosen amounts to caller-chosen
	// payable periods.
	StrategyManual Strategy = "manual"
)

// =============================================================================
// PAYMENT INTENT
// =============================================================================

// BreakdownEntry names one period and the amount to apply to it.
type BreakdownEntry struct {
	Period ledger.PeriodKey
	Amount ledger.Money
}

// PaymentIntent is what the caller wants to do.
//
// For StrategyAuto, Amount is the total the caller displayed to the user
// (derived from the same ledger snapshot); the allocator verifies it still
// matches. A zero Amount means "derive it now".
//
// For StrategyManual, Breakdown is required and non-empty; Amount is
// ignored (the total is the sum of the breakdown).
type PaymentIntent struct {
	Strategy  Strategy
	Amount    ledger.Money
	Breakdown []BreakdownEntry
}

// =============================================================================
// ALLOCATION RESULT
// =============================================================================

// AllocationResult is the plan: which periods receive how much.
//
// RemainderAsCredit is always >= 0. Under the current policies it is
// always zero (auto amounts match the outstanding total exactly, manual
// entries may not overpay), but the field is part of the contract so a
// future strategy can direct surplus to the earliest open period.
type AllocationResult struct {
	Strategy          Strategy
	AppliedBreakdown  []BreakdownEntry
	TotalApplied      ledger.Money
	RemainderAsCredit ledger.Money
}
