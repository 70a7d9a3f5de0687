/*
factory.go - JSON to Rules conversion

PURPOSE:
  Converts JSON rules definitions into pricing.Rules. This enables tariff
  configuration without code changes - administration defines coefficients
  in JSON, the factory validates them and produces the Go struct, and the
  store persists each accepted definition as a new immutable version.

JSON SCHEMA:
  {
    "base": "16000",
    "cremation_coef": "0.125",
    "group": {
      "neutral_at": 4,
      "step": "0.1",
      "min_map": {"1": "0.55", "2": "0.75", "3": "0.9"}
    },
    "age_tiers": [
      {"min": 51, "coef": "1.125"},
      {"min": 66, "coef": "1.25"}
    ]
  }

  Coefficients are JSON strings, not numbers: the tariff must survive a
  round trip without binary-float distortion.

KEY FEATURES:
  - Validates structure and coefficient ranges
  - Sets sensible defaults (neutral_at 4)
  - Round-trips: RulesToJSON(ParseRules(x)) is stable

SEE ALSO:
  - types.go: Rules definition
  - rules.go: Go-based preset configuration
  - store/sqlite: version storage
*/
package pricing

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/previsora/billing-engine/ledger"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RulesJSON is the JSON representation of a rules version.
type RulesJSON struct {
	Base          string            `json:"base"`
	CremationCoef string            `json:"cremation_coef"`
	Group         GroupJSON         `json:"group"`
	AgeTiers      []AgeTierJSON     `json:"age_tiers,omitempty"`
}

type GroupJSON struct {
	NeutralAt int               `json:"neutral_at,omitempty"`
	Step      string            `json:"step"`
	MinMap    map[string]string `json:"min_map,omitempty"`
}

type AgeTierJSON struct {
	Min  int    `json:"min"`
	Coef string `json:"coef"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseRules converts a JSON document into Rules. Version is assigned by
// the store, not the document, so it is left at zero here.
func ParseRules(data []byte) (Rules, error) {
	var doc RulesJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return Rules{}, fmt.Errorf("invalid rules JSON: %w", err)
	}
	return FromJSON(doc)
}

// FromJSON converts the schema struct into Rules, validating coefficients.
func FromJSON(doc RulesJSON) (Rules, error) {
	base, err := decimal.NewFromString(doc.Base)
	if err != nil || !base.IsPositive() {
		return Rules{}, fmt.Errorf("rules base must be a positive decimal, got %q", doc.Base)
	}

	cremation, err := decimal.NewFromString(doc.CremationCoef)
	if err != nil || cremation.IsNegative() {
		return Rules{}, fmt.Errorf("cremation_coef must be a non-negative decimal, got %q", doc.CremationCoef)
	}

	neutral := doc.Group.NeutralAt
	if neutral == 0 {
		neutral = 4
	}
	if neutral < 1 {
		return Rules{}, fmt.Errorf("group.neutral_at must be >= 1, got %d", neutral)
	}

	step, err := decimal.NewFromString(doc.Group.Step)
	if err != nil || step.IsNegative() {
		return Rules{}, fmt.Errorf("group.step must be a non-negative decimal, got %q", doc.Group.Step)
	}

	minMap := make(map[int]decimal.Decimal, len(doc.Group.MinMap))
	for sizeStr, coefStr := range doc.Group.MinMap {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size < 1 {
			return Rules{}, fmt.Errorf("group.min_map key %q is not a valid group size", sizeStr)
		}
		coef, err := decimal.NewFromString(coefStr)
		if err != nil || !coef.IsPositive() {
			return Rules{}, fmt.Errorf("group.min_map[%d] must be a positive decimal, got %q", size, coefStr)
		}
		minMap[size] = coef
	}

	tiers := make([]AgeTier, 0, len(doc.AgeTiers))
	for _, t := range doc.AgeTiers {
		if t.Min < 0 {
			return Rules{}, fmt.Errorf("age tier min must be >= 0, got %d", t.Min)
		}
		coef, err := decimal.NewFromString(t.Coef)
		if err != nil || !coef.IsPositive() {
			return Rules{}, fmt.Errorf("age tier coef must be a positive decimal, got %q", t.Coef)
		}
		tiers = append(tiers, AgeTier{Min: t.Min, Coef: coef})
	}

	return Rules{
		Base:          ledger.NewMoneyFromDecimal(base),
		CremationCoef: cremation,
		Group:         GroupRules{NeutralAt: neutral, Step: step, MinMap: minMap},
		Age:           tiers,
	}, nil
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// ToJSON converts Rules back into the JSON schema struct.
func ToJSON(r Rules) RulesJSON {
	minMap := make(map[string]string, len(r.Group.MinMap))
	for size, coef := range r.Group.MinMap {
		minMap[strconv.Itoa(size)] = coef.String()
	}
	tiers := make([]AgeTierJSON, 0, len(r.Age))
	for _, t := range r.Age {
		tiers = append(tiers, AgeTierJSON{Min: t.Min, Coef: t.Coef.String()})
	}
	return RulesJSON{
		Base:          r.Base.String(),
		CremationCoef: r.CremationCoef.String(),
		Group: GroupJSON{
			NeutralAt: r.Group.NeutralAt,
			Step:      r.Group.Step.String(),
			MinMap:    minMap,
		},
		AgeTiers: tiers,
	}
}

// MarshalRules serializes Rules for storage.
func MarshalRules(r Rules) ([]byte, error) {
	return json.Marshal(ToJSON(r))
}
