package commission_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/previsora/billing-engine/commission"
	"github.com/previsora/billing-engine/ledger"
)

func TestCompute_OnTimeCollectorKeepsBonus(t *testing.T) {
	// GIVEN: 100000 expected, 80000 collected, cash held 2 days (grace 3)
	// THEN: expected 12000 (12%), current 9600 (12% of 80000)

	est := commission.Compute(commission.DefaultRates(), commission.EstimateInput{
		ExpectedPortfolio: ledger.NewMoney(100000),
		Collected:         ledger.NewMoney(80000),
		DaysInHand:        2,
	})

	assert.True(t, est.Expected.Equal(ledger.NewMoney(12000)), "expected = %v", est.Expected)
	assert.True(t, est.Current.Equal(ledger.NewMoney(9600)), "current = %v", est.Current)
}

func TestCompute_HeldCashForfeitsBonus(t *testing.T) {
	// Held 5 days with 3 days of grace: base rate only on collections.

	est := commission.Compute(commission.DefaultRates(), commission.EstimateInput{
		ExpectedPortfolio: ledger.NewMoney(100000),
		Collected:         ledger.NewMoney(80000),
		DaysInHand:        5,
	})

	assert.True(t, est.Expected.Equal(ledger.NewMoney(12000)))
	assert.True(t, est.Current.Equal(ledger.NewMoney(8000)), "current = %v", est.Current)
}

func TestInputFromLedger_SkipsFuturePeriods(t *testing.T) {
	rows := ledger.Aggregate([]ledger.PeriodRecord{
		{Period: "2025-01", Charge: ledger.NewMoney(10000), Paid: ledger.NewMoney(10000)},
		{Period: "2025-02", Charge: ledger.NewMoney(10000), Paid: ledger.NewMoney(3000)},
		{Period: "2025-04", Charge: ledger.NewMoney(10000), Paid: ledger.Zero()},
	}, "2025-03")

	input := commission.InputFromLedger(rows, 1)

	assert.True(t, input.ExpectedPortfolio.Equal(ledger.NewMoney(20000)),
		"expected portfolio = %v", input.ExpectedPortfolio)
	assert.True(t, input.Collected.Equal(ledger.NewMoney(13000)),
		"collected = %v", input.Collected)
	assert.Equal(t, 1, input.DaysInHand)
}
