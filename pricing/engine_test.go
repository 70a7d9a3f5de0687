package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/previsora/billing-engine/ledger"
	"github.com/previsora/billing-engine/pricing"
)

func testRules() pricing.Rules {
	return pricing.StandardRules(16000)
}

// =============================================================================
// TARIFF VECTORS
// =============================================================================

func TestComputeQuote_NeutralGroupWithAgeSurcharge(t *testing.T) {
	// GIVEN: base 16000, neutral group of 4, oldest member 55, no cremation
	// THEN: groupFactor 1, ageFactor 1.125 (tier 51+), ideal 18000

	quote := pricing.ComputeQuote(testRules(), pricing.Inputs{
		Integrantes: 4, EdadMax: 55, Cremaciones: 0,
	})

	assert.True(t, quote.GroupFactor.Equal(decimal.NewFromInt(1)),
		"groupFactor = %v", quote.GroupFactor)
	assert.True(t, quote.AgeFactor.Equal(decimal.RequireFromString("1.125")),
		"ageFactor = %v", quote.AgeFactor)
	assert.True(t, quote.Subtotal.Equal(ledger.NewMoney(18000)),
		"subtotal = %v", quote.Subtotal)
	assert.True(t, quote.IdealCharge.Equal(ledger.NewMoney(18000)),
		"ideal = %v", quote.IdealCharge)
}

func TestComputeQuote_SmallGroupOverrideWithCremation(t *testing.T) {
	// GIVEN: group of 2 (override 0.75), age 40 (no tier), one cremation
	// THEN: 16000*0.75 + 16000*0.125 = 12000 + 2000 = 14000

	quote := pricing.ComputeQuote(testRules(), pricing.Inputs{
		Integrantes: 2, EdadMax: 40, Cremaciones: 1,
	})

	assert.True(t, quote.GroupFactor.Equal(decimal.RequireFromString("0.75")))
	assert.True(t, quote.AgeFactor.Equal(decimal.NewFromInt(1)))
	assert.True(t, quote.CremationCost.Equal(ledger.NewMoney(2000)))
	assert.True(t, quote.IdealCharge.Equal(ledger.NewMoney(14000)))
}

func TestComputeQuote_LargeGroupLinearFactor(t *testing.T) {
	// 6 members: 1 + (6-4)*0.1 = 1.2 -> 19200, rounds to 19000
	// (r = 200 < 250, rounds down)

	quote := pricing.ComputeQuote(testRules(), pricing.Inputs{
		Integrantes: 6, EdadMax: 30, Cremaciones: 0,
	})

	assert.True(t, quote.GroupFactor.Equal(decimal.RequireFromString("1.2")))
	assert.True(t, quote.Subtotal.Equal(ledger.NewMoney(19200)))
	assert.True(t, quote.IdealCharge.Equal(ledger.NewMoney(19000)))
}

func TestComputeQuote_ClampsInvalidInputs(t *testing.T) {
	// Preview computation: never crash, clamp instead.

	quote := pricing.ComputeQuote(testRules(), pricing.Inputs{
		Integrantes: -3, EdadMax: 0, Cremaciones: -2,
	})

	// integrantes clamps to 1 -> minMap override 0.55
	assert.True(t, quote.GroupFactor.Equal(decimal.RequireFromString("0.55")))
	assert.True(t, quote.CremationCost.IsZero())
}

// =============================================================================
// AGE TIERS
// =============================================================================

func TestAgeFactor_HighestMatchingTierWins(t *testing.T) {
	rules := testRules()

	tests := []struct {
		edadMax int
		want    string
	}{
		{edadMax: 40, want: "1"},
		{edadMax: 51, want: "1.125"},
		{edadMax: 65, want: "1.125"},
		{edadMax: 66, want: "1.25"},
		{edadMax: 80, want: "1.5"},
	}
	for _, tt := range tests {
		quote := pricing.ComputeQuote(rules, pricing.Inputs{Integrantes: 4, EdadMax: tt.edadMax})
		assert.True(t, quote.AgeFactor.Equal(decimal.RequireFromString(tt.want)),
			"edadMax %d: ageFactor = %v, want %s", tt.edadMax, quote.AgeFactor, tt.want)
	}
}

func TestPricing_MonotonicInAgeAndCremations(t *testing.T) {
	rules := testRules()

	// Increasing edadMax never decreases the charge.
	prev := ledger.Zero()
	for age := 0; age <= 90; age += 5 {
		charge := pricing.ComputeIdealCharge(rules, pricing.Inputs{Integrantes: 4, EdadMax: age})
		assert.False(t, charge.LessThan(prev), "charge decreased at edadMax %d", age)
		prev = charge
	}

	// Increasing cremaciones never decreases the charge.
	prev = ledger.Zero()
	for n := 0; n <= 5; n++ {
		charge := pricing.ComputeIdealCharge(rules, pricing.Inputs{Integrantes: 4, EdadMax: 30, Cremaciones: n})
		assert.False(t, charge.LessThan(prev), "charge decreased at cremaciones %d", n)
		prev = charge
	}
}

// =============================================================================
// ROUNDING POLICY
// =============================================================================

func TestRoundTo500(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"18000", 18000}, // exact multiple, r = 0
		{"18249", 18000}, // r = 249 rounds down
		{"18250", 18500}, // midpoint rounds up
		{"18251", 18500},
		{"18499", 18500},
		{"18500", 18500},
		{"120", 0},
		{"250", 500},
		{"0", 0},
	}
	for _, tt := range tests {
		got := pricing.RoundTo500(ledger.ParseMoney(tt.in))
		assert.True(t, got.Equal(ledger.NewMoney(tt.want)),
			"RoundTo500(%s) = %v, want %d", tt.in, got, tt.want)
	}
}

func TestRoundTo500_Idempotent(t *testing.T) {
	for _, in := range []string{"17", "18250", "123456", "499", "500", "750.25"} {
		once := pricing.RoundTo500(ledger.ParseMoney(in))
		twice := pricing.RoundTo500(once)
		assert.True(t, once.Equal(twice), "round500 not idempotent for %s", in)
	}
}

// =============================================================================
// JSON FACTORY
// =============================================================================

func TestRulesJSONRoundTrip(t *testing.T) {
	rules := testRules()

	data, err := pricing.MarshalRules(rules)
	require.NoError(t, err)

	parsed, err := pricing.ParseRules(data)
	require.NoError(t, err)

	// Same tariff in, same quote out.
	inputs := pricing.Inputs{Integrantes: 3, EdadMax: 70, Cremaciones: 2}
	assert.True(t, pricing.ComputeIdealCharge(rules, inputs).
		Equal(pricing.ComputeIdealCharge(parsed, inputs)))
}

func TestParseRules_RejectsBadConfigs(t *testing.T) {
	bad := []string{
		`{"base": "0", "cremation_coef": "0.1", "group": {"step": "0.1"}}`,
		`{"base": "-5", "cremation_coef": "0.1", "group": {"step": "0.1"}}`,
		`{"base": "16000", "cremation_coef": "abc", "group": {"step": "0.1"}}`,
		`{"base": "16000", "cremation_coef": "0.1", "group": {"step": "-1"}}`,
		`{"base": "16000", "cremation_coef": "0.1", "group": {"step": "0.1", "min_map": {"zero": "1"}}}`,
		`{"base": "16000", "cremation_coef": "0.1", "group": {"step": "0.1"}, "age_tiers": [{"min": -1, "coef": "1.1"}]}`,
		`not json`,
	}
	for _, doc := range bad {
		_, err := pricing.ParseRules([]byte(doc))
		assert.Error(t, err, "expected rejection of %s", doc)
	}
}

func TestParseRules_DefaultsNeutralAt(t *testing.T) {
	rules, err := pricing.ParseRules([]byte(
		`{"base": "16000", "cremation_coef": "0.125", "group": {"step": "0.1"}}`))
	require.NoError(t, err)
	assert.Equal(t, 4, rules.Group.NeutralAt)
}
