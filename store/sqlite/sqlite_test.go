package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/previsora/billing-engine/allocation"
	"github.com/previsora/billing-engine/ledger"
	"github.com/previsora/billing-engine/pricing"
	"github.com/previsora/billing-engine/store"
	"github.com/previsora/billing-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRecords_AppendAndLoadRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	in := []ledger.PeriodRecord{
		{Period: "2025-01", Charge: ledger.NewMoney(10000), Paid: ledger.NewMoney(3000)},
		{Period: "2025-02", Charge: ledger.ParseMoney("10000.50"), Paid: ledger.Zero(), FutureHint: true},
	}
	require.NoError(t, st.AppendRecords(ctx, "g1", in))

	out, err := st.Records(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "2025-01", out[0].Period)
	assert.True(t, out[0].Charge.Equal(ledger.NewMoney(10000)))
	assert.True(t, out[1].Charge.Equal(ledger.ParseMoney("10000.50")), "decimal survives storage")
	assert.True(t, out[1].FutureHint)

	// Groups are isolated
	other, err := st.Records(ctx, "g2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRules_VersionsAreMonotonicAndImmutable(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.LatestRules(ctx)
	assert.True(t, errors.Is(err, store.ErrNoRules))

	v1, err := st.SaveRules(ctx, pricing.StandardRules(16000))
	require.NoError(t, err)
	v2, err := st.SaveRules(ctx, pricing.StandardRules(17000))
	require.NoError(t, err)
	assert.Equal(t, v1+1, v2)

	latest, err := st.LatestRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, v2, latest.Version)
	assert.True(t, latest.Base.Equal(ledger.NewMoney(17000)))

	first, err := st.RulesByVersion(ctx, v1)
	require.NoError(t, err)
	assert.True(t, first.Base.Equal(ledger.NewMoney(16000)))

	_, err = st.RulesByVersion(ctx, 99)
	assert.True(t, errors.Is(err, store.ErrRulesVersionNotFound))
}

func TestApplyAllocation_WritesReceiptAndPaidRecords(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendRecords(ctx, "g1", []ledger.PeriodRecord{
		{Period: "2025-01", Charge: ledger.NewMoney(10000), Paid: ledger.Zero()},
		{Period: "2025-02", Charge: ledger.NewMoney(10000), Paid: ledger.Zero()},
	}))

	result := allocation.AllocationResult{
		Strategy: allocation.StrategyAuto,
		AppliedBreakdown: []allocation.BreakdownEntry{
			{Period: "2025-01", Amount: ledger.NewMoney(10000)},
			{Period: "2025-02", Amount: ledger.NewMoney(10000)},
		},
		TotalApplied:      ledger.NewMoney(20000),
		RemainderAsCredit: ledger.Zero(),
	}

	receipt, err := st.ApplyAllocation(ctx, "g1", result)
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.ID)
	assert.True(t, receipt.Total.Equal(ledger.NewMoney(20000)))

	// The next aggregation sees the payment
	records, err := st.Records(ctx, "g1")
	require.NoError(t, err)
	rows := ledger.Aggregate(records, "2025-02")
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, ledger.StatusPaid, row.Status)
	}

	receipts, err := st.Payments(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, receipt.ID, receipts[0].ID)
}
