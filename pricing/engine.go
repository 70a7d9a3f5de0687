/*
engine.go - Ideal charge computation

PURPOSE:
  Turns Rules + Inputs into one Money value:

    groupFactor   = MinMap[size] or 1 + (size - neutral) * step
    ageFactor     = coef of the highest tier with min <= edadMax, else 1
    cremationCost = base * cremationCoef * cremaciones
    subtotal      = base * groupFactor * ageFactor + cremationCost
    ideal         = roundTo500(subtotal), midpoint rounds up

  All arithmetic is decimal; the 500-rounding is a pricing-display policy,
  not numeric cleanup, and its midpoint-up rule is load-bearing.

CLAMPING:
  This is a preview computation that must never take the caller down:
  integrantes floors at 1, cremaciones at 0. The authoritative charge is
  re-validated server-side when posted.

SEE ALSO:
  - types.go: Rules and Inputs
  - engine_test.go: rounding and factor vectors
*/
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/previsora/billing-engine/ledger"
)

var (
	one          = decimal.NewFromInt(1)
	roundingStep = decimal.NewFromInt(500)
	halfStep     = decimal.NewFromInt(250)
)

// ComputeIdealCharge returns the rules-derived recurring charge.
func ComputeIdealCharge(rules Rules, inputs Inputs) ledger.Money {
	return ComputeQuote(rules, inputs).IdealCharge
}

// ComputeQuote computes the ideal charge along with its breakdown.
func ComputeQuote(rules Rules, inputs Inputs) Quote {
	size := inputs.Integrantes
	if size < 1 {
		size = 1
	}
	cremations := inputs.Cremaciones
	if cremations < 0 {
		cremations = 0
	}

	gf := groupFactor(rules.Group, size)
	af := ageFactor(rules.Age, inputs.EdadMax)

	cremationCost := rules.Base.Mul(rules.CremationCoef).Mul(decimal.NewFromInt(int64(cremations)))
	subtotal := rules.Base.Mul(gf).Mul(af).Add(cremationCost)

	return Quote{
		RulesVersion:  rules.Version,
		GroupFactor:   gf,
		AgeFactor:     af,
		CremationCost: cremationCost,
		Subtotal:      subtotal,
		IdealCharge:   RoundTo500(subtotal),
	}
}

func groupFactor(g GroupRules, size int) decimal.Decimal {
	if override, ok := g.MinMap[size]; ok {
		return override
	}
	delta := decimal.NewFromInt(int64(size - g.NeutralAt))
	return one.Add(delta.Mul(g.Step))
}

func ageFactor(tiers []AgeTier, edadMax int) decimal.Decimal {
	sorted := make([]AgeTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })

	for _, tier := range sorted {
		if tier.Min <= edadMax {
			return tier.Coef
		}
	}
	return one
}

// RoundTo500 rounds to the nearest multiple of 500, midpoint up:
// r = x mod 500; x - r if r < 250, else x - r + 500. Idempotent.
func RoundTo500(m ledger.Money) ledger.Money {
	r := m.Value.Mod(roundingStep)
	down := m.Value.Sub(r)
	if r.LessThan(halfStep) {
		return ledger.NewMoneyFromDecimal(down)
	}
	return ledger.NewMoneyFromDecimal(down.Add(roundingStep))
}
