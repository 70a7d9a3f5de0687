package allocation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/previsora/billing-engine/allocation"
	"github.com/previsora/billing-engine/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func money(units int64) ledger.Money { return ledger.NewMoney(units) }

func rec(period string, charge, paid int64) ledger.PeriodRecord {
	return ledger.PeriodRecord{Period: period, Charge: money(charge), Paid: money(paid)}
}

// arrearsLedger builds a ledger with the given number of fully due months
// ending at 2025-03, each charged 10000.
func arrearsLedger(monthsDue int) []ledger.LedgerRow {
	months := []string{"2024-10", "2024-11", "2024-12", "2025-01", "2025-02", "2025-03"}
	var records []ledger.PeriodRecord
	for i := 0; i < monthsDue; i++ {
		records = append(records, rec(months[len(months)-monthsDue+i], 10000, 0))
	}
	return ledger.Aggregate(records, "2025-03")
}

func manualIntent(entries ...allocation.BreakdownEntry) allocation.PaymentIntent {
	return allocation.PaymentIntent{Strategy: allocation.StrategyManual, Breakdown: entries}
}

func entry(period string, amount int64) allocation.BreakdownEntry {
	return allocation.BreakdownEntry{Period: ledger.PeriodKey(period), Amount: money(amount)}
}

// =============================================================================
// AUTO STRATEGY
// =============================================================================

func TestAllocate_Auto_SettlesOldestFirst(t *testing.T) {
	// GIVEN: two due months and one partial month
	// WHEN: allocating automatically
	// THEN: every open balance is covered, oldest period first

	rows := ledger.Aggregate([]ledger.PeriodRecord{
		rec("2025-01", 10000, 0),
		rec("2025-02", 10000, 4000),
		rec("2025-03", 10000, 10000),
	}, "2025-03")

	result, err := allocation.Allocate(rows,
		allocation.PaymentIntent{Strategy: allocation.StrategyAuto},
		ledger.MonthsDue(rows))
	require.NoError(t, err)

	require.Len(t, result.AppliedBreakdown, 2)
	assert.Equal(t, ledger.PeriodKey("2025-01"), result.AppliedBreakdown[0].Period)
	assert.True(t, result.AppliedBreakdown[0].Amount.Equal(money(10000)))
	assert.Equal(t, ledger.PeriodKey("2025-02"), result.AppliedBreakdown[1].Period)
	assert.True(t, result.AppliedBreakdown[1].Amount.Equal(money(6000)))

	assert.True(t, result.TotalApplied.Equal(money(16000)))
	assert.True(t, result.RemainderAsCredit.IsZero())
}

func TestAllocate_Auto_ConservationAndRowCaps(t *testing.T) {
	// Property: total applied equals the derived amount, and no row
	// receives more than its pre-allocation balance.

	rows := ledger.Aggregate([]ledger.PeriodRecord{
		rec("2024-12", 8000, 500),
		rec("2025-01", 10000, 0),
		rec("2025-02", 12000, 11999),
	}, "2025-03")

	result, err := allocation.Allocate(rows,
		allocation.PaymentIntent{Strategy: allocation.StrategyAuto},
		ledger.MonthsDue(rows))
	require.NoError(t, err)

	applied := ledger.Zero()
	for _, e := range result.AppliedBreakdown {
		row, ok := ledger.Find(rows, e.Period)
		require.True(t, ok)
		assert.False(t, e.Amount.GreaterThan(row.Balance),
			"period %s applied %v over balance %v", e.Period, e.Amount, row.Balance)
		applied = applied.Add(e.Amount)
	}
	assert.True(t, applied.Equal(ledger.OutstandingTotal(rows)))
	assert.True(t, result.TotalApplied.Equal(applied))
}

func TestAllocate_Auto_NeverTouchesFuturePeriods(t *testing.T) {
	rows := ledger.Aggregate([]ledger.PeriodRecord{
		rec("2025-03", 10000, 0),
		rec("2025-04", 10000, 0),
		rec("2025-05", 10000, 0),
	}, "2025-03")

	result, err := allocation.Allocate(rows,
		allocation.PaymentIntent{Strategy: allocation.StrategyAuto},
		ledger.MonthsDue(rows))
	require.NoError(t, err)

	require.Len(t, result.AppliedBreakdown, 1)
	assert.Equal(t, ledger.PeriodKey("2025-03"), result.AppliedBreakdown[0].Period)
}

func TestAllocate_Auto_StaleAmountRejected(t *testing.T) {
	// GIVEN: a displayed total of 5000
	// WHEN: the live ledger now carries 10000 outstanding
	// THEN: StaleLedger, never a guess

	rows := arrearsLedger(1)

	_, err := allocation.Allocate(rows,
		allocation.PaymentIntent{Strategy: allocation.StrategyAuto, Amount: money(5000)},
		ledger.MonthsDue(rows))

	require.Error(t, err)
	assert.ErrorIs(t, err, allocation.ErrStaleLedger)

	var stale *allocation.StaleLedgerError
	require.ErrorAs(t, err, &stale)
	assert.True(t, stale.IntentAmount.Equal(money(5000)))
	assert.True(t, stale.LiveTotal.Equal(money(10000)))
	assert.True(t, allocation.IsRetryable(err))
}

func TestAllocate_Auto_MatchingAmountAccepted(t *testing.T) {
	rows := arrearsLedger(2)

	result, err := allocation.Allocate(rows,
		allocation.PaymentIntent{Strategy: allocation.StrategyAuto, Amount: money(20000)},
		ledger.MonthsDue(rows))

	require.NoError(t, err)
	assert.True(t, result.TotalApplied.Equal(money(20000)))
}

// =============================================================================
// MANUAL STRATEGY
// =============================================================================

func TestAllocate_Manual_AppliesSelectedPeriods(t *testing.T) {
	rows := arrearsLedger(2)

	result, err := allocation.Allocate(rows,
		manualIntent(entry("2025-02", 10000), entry("2025-03", 4000)),
		ledger.MonthsDue(rows))
	require.NoError(t, err)

	assert.Equal(t, allocation.StrategyManual, result.Strategy)
	assert.True(t, result.TotalApplied.Equal(money(14000)))
	assert.True(t, result.RemainderAsCredit.IsZero())
	require.Len(t, result.AppliedBreakdown, 2)
}

func TestAllocate_Manual_FuturePeriodRejected(t *testing.T) {
	rows := ledger.Aggregate([]ledger.PeriodRecord{
		rec("2025-03", 10000, 0),
		rec("2025-04", 10000, 0),
	}, "2025-03")

	_, err := allocation.Allocate(rows,
		manualIntent(entry("2025-04", 10000)),
		ledger.MonthsDue(rows))

	require.Error(t, err)
	assert.ErrorIs(t, err, allocation.ErrInvalidPeriodSelection)

	var sel *allocation.InvalidPeriodSelectionError
	require.ErrorAs(t, err, &sel)
	assert.Equal(t, ledger.PeriodKey("2025-04"), sel.Period)
	assert.Equal(t, ledger.StatusFuture, sel.Status)
}

func TestAllocate_Manual_UnknownPeriodRejected(t *testing.T) {
	rows := arrearsLedger(1)

	_, err := allocation.Allocate(rows,
		manualIntent(entry("2020-01", 100)),
		ledger.MonthsDue(rows))

	assert.ErrorIs(t, err, allocation.ErrInvalidPeriodSelection)
}

func TestAllocate_Manual_PaidPeriodRejected(t *testing.T) {
	rows := ledger.Aggregate([]ledger.PeriodRecord{
		rec("2025-01", 10000, 10000),
		rec("2025-02", 10000, 0),
	}, "2025-03")

	_, err := allocation.Allocate(rows,
		manualIntent(entry("2025-01", 100)),
		ledger.MonthsDue(rows))

	assert.ErrorIs(t, err, allocation.ErrInvalidPeriodSelection)
}

func TestAllocate_Manual_OverpaymentOfPeriodRejected(t *testing.T) {
	rows := ledger.Aggregate([]ledger.PeriodRecord{
		rec("2025-02", 10000, 4000),
	}, "2025-03")

	_, err := allocation.Allocate(rows,
		manualIntent(entry("2025-02", 6001)),
		ledger.MonthsDue(rows))

	require.Error(t, err)
	assert.ErrorIs(t, err, allocation.ErrAmountExceedsBalance)

	var exceeds *allocation.AmountExceedsBalanceError
	require.ErrorAs(t, err, &exceeds)
	assert.True(t, exceeds.Balance.Equal(money(6000)))
	assert.True(t, exceeds.Requested.Equal(money(6001)))
}

func TestAllocate_Manual_ExactBalanceAccepted(t *testing.T) {
	rows := ledger.Aggregate([]ledger.PeriodRecord{
		rec("2025-02", 10000, 4000),
	}, "2025-03")

	result, err := allocation.Allocate(rows,
		manualIntent(entry("2025-02", 6000)),
		ledger.MonthsDue(rows))

	require.NoError(t, err)
	assert.True(t, result.TotalApplied.Equal(money(6000)))
}

func TestAllocate_Manual_EmptyBreakdownRejected(t *testing.T) {
	rows := arrearsLedger(1)

	_, err := allocation.Allocate(rows, manualIntent(), ledger.MonthsDue(rows))
	assert.Error(t, err)
}

// =============================================================================
// ARREARS GATE
// =============================================================================

func TestAllocate_Manual_ThreeMonthsDue_SinglePeriodBlocked(t *testing.T) {
	// GIVEN: a group 3 months in arrears
	// WHEN: the cashier tries to settle a single period
	// THEN: ArrearsRuleViolation carrying the figures for the UI

	rows := arrearsLedger(3)
	require.Equal(t, 3, ledger.MonthsDue(rows))

	_, err := allocation.Allocate(rows,
		manualIntent(entry("2025-01", 10000)),
		ledger.MonthsDue(rows))

	require.Error(t, err)
	assert.ErrorIs(t, err, allocation.ErrArrearsRuleViolation)

	var arrears *allocation.ArrearsRuleError
	require.ErrorAs(t, err, &arrears)
	assert.Equal(t, 3, arrears.MonthsDue)
	assert.Equal(t, 2, arrears.MinPeriodsToCharge)
	assert.Equal(t, 1, arrears.PeriodsSelected)
	assert.True(t, allocation.IsClientError(err))
}

func TestAllocate_Manual_DuplicatePeriodRejected(t *testing.T) {
	// GIVEN: a period with balance 10000
	// WHEN: the breakdown names it twice, each entry within the balance
	// THEN: rejected, so the summed payment can never exceed the balance

	rows := arrearsLedger(2)

	_, err := allocation.Allocate(rows,
		manualIntent(entry("2025-02", 10000), entry("2025-02", 10000)),
		ledger.MonthsDue(rows))

	require.Error(t, err)
	assert.ErrorIs(t, err, allocation.ErrInvalidPeriodSelection)

	var sel *allocation.InvalidPeriodSelectionError
	require.ErrorAs(t, err, &sel)
	assert.Equal(t, ledger.PeriodKey("2025-02"), sel.Period)
	assert.True(t, sel.Duplicate)
}

func TestAllocate_Manual_DuplicatePeriodCannotSatisfyArrearsGate(t *testing.T) {
	// GIVEN: a group 3 months in arrears, requiring 2 distinct periods
	// WHEN: the cashier repeats one period to pad the breakdown to 2 entries
	// THEN: rejected; only distinct periods count toward the gate

	rows := arrearsLedger(3)
	require.Equal(t, 3, ledger.MonthsDue(rows))

	_, err := allocation.Allocate(rows,
		manualIntent(entry("2025-01", 5000), entry("2025-01", 5000)),
		ledger.MonthsDue(rows))

	require.Error(t, err)
	assert.ErrorIs(t, err, allocation.ErrInvalidPeriodSelection)
	assert.True(t, allocation.IsClientError(err))
}

func TestAllocate_Manual_ThreeMonthsDue_TwoPeriodsAccepted(t *testing.T) {
	rows := arrearsLedger(3)

	result, err := allocation.Allocate(rows,
		manualIntent(entry("2025-01", 10000), entry("2025-02", 10000)),
		ledger.MonthsDue(rows))

	require.NoError(t, err)
	assert.True(t, result.TotalApplied.Equal(money(20000)))
}

func TestAllocate_Manual_TwoMonthsDue_SinglePeriodAllowed(t *testing.T) {
	rows := arrearsLedger(2)

	_, err := allocation.Allocate(rows,
		manualIntent(entry("2025-02", 10000)),
		ledger.MonthsDue(rows))

	assert.NoError(t, err)
}

func TestAllocate_FourMonthsDue_OfficeCollectionRefused(t *testing.T) {
	// The block applies before strategy dispatch: auto and manual both fail.

	rows := arrearsLedger(4)
	require.Equal(t, 4, ledger.MonthsDue(rows))

	for _, intent := range []allocation.PaymentIntent{
		{Strategy: allocation.StrategyAuto},
		manualIntent(entry("2024-12", 10000), entry("2025-01", 10000)),
	} {
		_, err := allocation.Allocate(rows, intent, ledger.MonthsDue(rows))
		require.Error(t, err)
		assert.ErrorIs(t, err, allocation.ErrPolicyBlocked)

		var blocked *allocation.PolicyBlockedError
		require.ErrorAs(t, err, &blocked)
		assert.Equal(t, 4, blocked.MonthsDue)
	}
}

func TestMinPeriodsToCharge(t *testing.T) {
	tests := []struct {
		monthsDue int
		want      int
	}{
		{0, 0}, {1, 0}, {2, 0}, {3, 2},
	}
	for _, tt := range tests {
		if got := allocation.MinPeriodsToCharge(tt.monthsDue); got != tt.want {
			t.Errorf("MinPeriodsToCharge(%d) = %d, want %d", tt.monthsDue, got, tt.want)
		}
	}
}
