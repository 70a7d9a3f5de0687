/*
rules.go - Preset pricing configurations

PURPOSE:
  Ready-to-use Rules values for common plans. These encode the house
  tariff: neutral family of four, explicit discounts for groups of 1-3,
  age surcharges from 51 up, and a cremation add-on per covered member.

CUSTOMIZATION:
  These are starting points. Real deployments tune coefficients through
  the rules endpoint, which stores each tuning as a new immutable version.

SEE ALSO:
  - factory.go: building Rules from JSON
  - store/sqlite: versioned persistence
*/
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/previsora/billing-engine/ledger"
)

// =============================================================================
// HOUSE TARIFF
// =============================================================================

// StandardRules returns the house tariff for the given base fee.
//
// Groups of four pay the base. Smaller groups get explicit override
// factors rather than the linear formula, which would underprice single
// members. Each member above four adds 10%.
func StandardRules(base int64) Rules {
	return Rules{
		Version:       1,
		Base:          ledger.NewMoney(base),
		CremationCoef: decimal.RequireFromString("0.125"),
		Group: GroupRules{
			NeutralAt: 4,
			Step:      decimal.RequireFromString("0.1"),
			MinMap: map[int]decimal.Decimal{
				1: decimal.RequireFromString("0.55"),
				2: decimal.RequireFromString("0.75"),
				3: decimal.RequireFromString("0.9"),
			},
		},
		Age: []AgeTier{
			{Min: 51, Coef: decimal.RequireFromString("1.125")},
			{Min: 66, Coef: decimal.RequireFromString("1.25")},
			{Min: 76, Coef: decimal.RequireFromString("1.5")},
		},
	}
}
