/*
money.go - Exact monetary arithmetic

PURPOSE:
  All money in the engine flows through Money, a thin wrapper around
  decimal.Decimal. Charges, payments, balances, and prices must satisfy
  exact equality invariants (balance == charge - paid), which rules out
  binary floating point anywhere in the pipeline.

DESIGN PRINCIPLES:
  1. Exactness: decimal.Decimal, never float64, for stored amounts
  2. Value semantics: Money is immutable; every operation returns a new value
  3. Explicit comparisons: no operator overloading surprises

USAGE:
  charge := ledger.NewMoney(16000)
  paid := ledger.NewMoney(3000)
  balance := charge.Sub(paid) // 13000, exact

SEE ALSO:
  - types.go: PeriodRecord and LedgerRow carry Money fields
  - pricing/engine.go: rounding policy built on Money
*/
package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// MONEY - Decimal-backed monetary amount
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(units int64) Money {
	return Money{Value: decimal.NewFromInt(units)}
}

func NewMoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Value: d}
}

// ParseMoney parses a decimal string ("16000", "123.50").
// Invalid strings parse to zero; callers validating user input should
// use decimal.NewFromString directly and reject errors.
func ParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func Zero() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money             { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money             { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money   { return Money{Value: m.Value.Mul(s)} }
func (m Money) Neg() Money                    { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool                  { return m.Value.IsZero() }
func (m Money) IsNegative() bool              { return m.Value.IsNegative() }
func (m Money) IsPositive() bool              { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool            { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool      { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool         { return m.Value.LessThan(o.Value) }

func (m Money) Min(o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}

func (m Money) Max(o Money) Money {
	if m.GreaterThan(o) {
		return m
	}
	return o
}

func (m Money) String() string { return m.Value.String() }
