/*
allocator.go - Payment allocation strategies and the arrears gate

PURPOSE:
  Implements Allocate, the single entry point of the package. Validates
  the intent against the ledger snapshot, enforces the arrears-gating
  business rule, and produces the application plan.

ARREARS GATE:
  monthsDue = count of ledger rows with status due or partial.

    monthsDue >= 4  -> office collection refused (PolicyBlockedError)
    monthsDue >= 3  -> manual breakdown must cover >= 2 periods
    otherwise       -> no minimum

  The gate exists to stop groups from gaming collection by trickling
  single-period payments while arrears keep growing.

VALIDATION ORDER (manual):
  1. Every named period is distinct, exists, and is payable
  2. Every amount is > 0 and <= that period's balance
  3. Breakdown covers at least minPeriodsToCharge periods

  Rejecting duplicates up front keeps both later checks honest: the
  per-period balance cap holds for the summed payment, and the breakdown
  length equals the count of distinct periods the gate reasons about.

SEE ALSO:
  - types.go: intent and result shapes
  - errors.go: failure taxonomy
*/
package allocation

import (
	"fmt"

	"github.com/previsora/billing-engine/ledger"
)

// OfficeCollectionLimit is the arrears level at which office collection
// is refused outright.
const OfficeCollectionLimit = 4

// MinPeriodsToCharge returns the minimum number of periods a manual
// breakdown must cover for the given arrears level.
func MinPeriodsToCharge(monthsDue int) int {
	if monthsDue >= 3 {
		return 2
	}
	return 0
}

// Allocate produces a payment application plan for the given ledger
// snapshot. monthsDue must be the payable-row count of the same snapshot
// (ledger.MonthsDue); it is passed explicitly because the caller has
// already derived and displayed it.
//
// Allocate is pure: it never mutates rows and never writes.
func Allocate(rows []ledger.LedgerRow, intent PaymentIntent, monthsDue int) (AllocationResult, error) {
	if rows == nil {
		// Programmer error, not a business condition.
		panic("allocation: nil ledger")
	}

	if monthsDue >= OfficeCollectionLimit {
		return AllocationResult{}, &PolicyBlockedError{MonthsDue: monthsDue, Limit: OfficeCollectionLimit}
	}

	switch intent.Strategy {
	case StrategyAuto:
		return allocateAuto(rows, intent)
	case StrategyManual:
		return allocateManual(rows, intent, monthsDue)
	default:
		return AllocationResult{}, fmt.Errorf("unknown allocation strategy %q", intent.Strategy)
	}
}

// =============================================================================
// AUTO - FIFO settlement of everything outstanding
// =============================================================================

func allocateAuto(rows []ledger.LedgerRow, intent PaymentIntent) (AllocationResult, error) {
	// Candidates are the payable rows; rows come in ascending period
	// order from the aggregator, so walking preserves FIFO.
	total := ledger.OutstandingTotal(rows)

	amount := intent.Amount
	if amount.IsZero() {
		amount = total
	} else if !amount.Equal(total) {
		// Balances moved between display and apply. Refuse to guess.
		return AllocationResult{}, &StaleLedgerError{IntentAmount: intent.Amount, LiveTotal: total}
	}

	remaining := amount
	var applied []BreakdownEntry
	for _, row := range rows {
		if !row.Status.Payable() {
			continue
		}
		if remaining.IsZero() {
			break
		}
		slice := remaining.Min(row.Balance)
		applied = append(applied, BreakdownEntry{Period: row.Period, Amount: slice})
		remaining = remaining.Sub(slice)
	}

	return AllocationResult{
		Strategy:          StrategyAuto,
		AppliedBreakdown:  applied,
		TotalApplied:      amount.Sub(remaining),
		RemainderAsCredit: remaining,
	}, nil
}

// =============================================================================
// MANUAL - Cashier-selected periods, gated by arrears
// =============================================================================

func allocateManual(rows []ledger.LedgerRow, intent PaymentIntent, monthsDue int) (AllocationResult, error) {
	if len(intent.Breakdown) == 0 {
		return AllocationResult{}, fmt.Errorf("manual strategy requires a non-empty breakdown")
	}

	minPeriods := MinPeriodsToCharge(monthsDue)

	seen := make(map[ledger.PeriodKey]bool, len(intent.Breakdown))
	for _, entry := range intent.Breakdown {
		if seen[entry.Period] {
			return AllocationResult{}, &InvalidPeriodSelectionError{Period: entry.Period, Duplicate: true}
		}
		seen[entry.Period] = true

		row, ok := ledger.Find(rows, entry.Period)
		if !ok {
			return AllocationResult{}, &InvalidPeriodSelectionError{Period: entry.Period}
		}
		if !row.Status.Payable() {
			return AllocationResult{}, &InvalidPeriodSelectionError{Period: entry.Period, Status: row.Status}
		}
		if !entry.Amount.IsPositive() {
			return AllocationResult{}, fmt.Errorf("breakdown amount for period %s must be positive, got %v",
				entry.Period, entry.Amount)
		}
		if entry.Amount.GreaterThan(row.Balance) {
			return AllocationResult{}, &AmountExceedsBalanceError{
				Period:    entry.Period,
				Requested: entry.Amount,
				Balance:   row.Balance,
			}
		}
	}

	if len(intent.Breakdown) < minPeriods {
		return AllocationResult{}, &ArrearsRuleError{
			MonthsDue:          monthsDue,
			MinPeriodsToCharge: minPeriods,
			PeriodsSelected:    len(intent.Breakdown),
		}
	}

	total := ledger.Zero()
	applied := make([]BreakdownEntry, len(intent.Breakdown))
	for i, entry := range intent.Breakdown {
		applied[i] = entry
		total = total.Add(entry.Amount)
	}

	return AllocationResult{
		Strategy:          StrategyManual,
		AppliedBreakdown:  applied,
		TotalApplied:      total,
		RemainderAsCredit: ledger.Zero(),
	}, nil
}
