/*
Package commission estimates a collector's earnings from ledger outputs.

PURPOSE:
  Collectors earn a base rate on everything they collect plus an on-time
  bonus. Cash held in hand beyond the grace window loses the bonus for
  the held portion. This is a thin derived read over the ledger: no state
  machine, no persistence.

CONTRACT:
  Expected: commission if the whole expected portfolio were collected on
  time (base rate + bonus on everything).
  Current:  base rate on what was actually collected, bonus only on the
  portion remitted within the grace window.

SEE ALSO:
  - ledger: source of the charge/paid figures
*/
package commission

import (
	"github.com/shopspring/decimal"

	"github.com/previsora/billing-engine/ledger"
)

// =============================================================================
// RATES
// =============================================================================

// Rates configures the commission scheme.
type Rates struct {
	// Base is the fraction earned on every collected unit.
	Base decimal.Decimal

	// OnTimeBonus is the extra fraction earned on amounts remitted within
	// the grace window.
	OnTimeBonus decimal.Decimal

	// GraceDays is how long collected cash may stay in hand before the
	// bonus is forfeited.
	GraceDays int
}

// DefaultRates is the house scheme: 10% base, 2% on-time bonus, 3 days
// of grace.
func DefaultRates() Rates {
	return Rates{
		Base:        decimal.RequireFromString("0.10"),
		OnTimeBonus: decimal.RequireFromString("0.02"),
		GraceDays:   3,
	}
}

// =============================================================================
// ESTIMATE
// =============================================================================

// EstimateInput carries the portfolio figures for one collector.
type EstimateInput struct {
	// ExpectedPortfolio is what the collector should collect in the
	// period (sum of charges on reached, non-future ledger rows).
	ExpectedPortfolio ledger.Money

	// Collected is what was actually collected.
	Collected ledger.Money

	// DaysInHand is how long the collected cash has been held.
	DaysInHand int
}

// Estimate is the result pair the cashier screen displays.
type Estimate struct {
	Expected ledger.Money
	Current  ledger.Money
}

// Compute estimates expected vs. current commission.
func Compute(rates Rates, input EstimateInput) Estimate {
	fullRate := rates.Base.Add(rates.OnTimeBonus)

	expected := input.ExpectedPortfolio.Mul(fullRate)

	currentRate := rates.Base
	if input.DaysInHand <= rates.GraceDays {
		currentRate = fullRate
	}
	current := input.Collected.Mul(currentRate)

	return Estimate{Expected: expected, Current: current}
}

// InputFromLedger derives the portfolio figures from aggregated rows:
// expected is the total charge of reached periods, collected is the total
// paid against them.
func InputFromLedger(rows []ledger.LedgerRow, daysInHand int) EstimateInput {
	expected := ledger.Zero()
	collected := ledger.Zero()
	for _, r := range rows {
		if r.Status == ledger.StatusFuture {
			continue
		}
		expected = expected.Add(r.Charge)
		collected = collected.Add(r.Paid)
	}
	return EstimateInput{
		ExpectedPortfolio: expected,
		Collected:         collected,
		DaysInHand:        daysInHand,
	}
}
