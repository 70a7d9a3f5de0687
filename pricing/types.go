/*
Package pricing derives the rules-based ("ideal") recurring charge for a
client group from its composition.

PURPOSE:
  Membership fees scale with three inputs: group size, the maximum covered
  age in the group, and how many members carry cremation coverage. The
  engine turns configured coefficients into one deterministic Money value,
  rounded to the nearest 500 by a fixed display policy.

KEY CONCEPTS IN THIS FILE (types.go):
  - Rules: the externally configured, versioned coefficient set
  - GroupRules: linear factor around a neutral group size, with explicit
    overrides for small groups
  - AgeTier: stepped multiplier keyed by minimum covered age
  - Inputs: the group's demographic snapshot

LIFECYCLE:
  Rules are loaded once per pricing session and safe to cache; a new
  version only affects computations made after it is stored. Posted
  history is never repriced.

SEE ALSO:
  - engine.go: the computation
  - rules.go: preset configuration
  - factory.go: JSON-based rules construction
*/
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/previsora/billing-engine/ledger"
)

// =============================================================================
// RULES - Versioned coefficient set
// =============================================================================

// AgeTier applies Coef when the group's maximum covered age is >= Min.
// Tiers are matched highest Min first.
type AgeTier struct {
	Min  int
	Coef decimal.Decimal
}

// GroupRules configures the group-size factor.
//
// Sizes present in MinMap take that factor verbatim. Other sizes use the
// linear form 1 + (size - NeutralAt) * Step.
type GroupRules struct {
	NeutralAt int
	Step      decimal.Decimal
	MinMap    map[int]decimal.Decimal
}

// Rules is the complete pricing configuration. Immutable once stored;
// tuning produces a new version.
type Rules struct {
	Version       int
	Base          ledger.Money
	CremationCoef decimal.Decimal
	Group         GroupRules
	Age           []AgeTier
}

// =============================================================================
// INPUTS - Group demographic snapshot
// =============================================================================

// Inputs describes the client group being priced. Field names follow the
// business vocabulary: integrantes (group size), edad máxima (oldest
// covered age), cremaciones (members with cremation coverage).
type Inputs struct {
	Integrantes int
	EdadMax     int
	Cremaciones int
}

// =============================================================================
// QUOTE - Breakdown of a computed charge
// =============================================================================

// Quote exposes the intermediate values so callers can render how the
// ideal charge was derived.
type Quote struct {
	RulesVersion  int
	GroupFactor   decimal.Decimal
	AgeFactor     decimal.Decimal
	CremationCost ledger.Money
	Subtotal      ledger.Money
	IdealCharge   ledger.Money
}
