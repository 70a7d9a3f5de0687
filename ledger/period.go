/*
period.go - Billing period keys

PURPOSE:
  A billing period is one calendar month, keyed by the fixed-width string
  "YYYY-MM". Because the key is zero-padded, lexicographic comparison is
  chronological comparison, so period ordering needs no date parsing.

KEY CONCEPTS:
  - PeriodKey: validated "YYYY-MM" string
  - PeriodOf: derive the key for a wall-clock instant
  - Before/After: chronological comparison via string comparison

SEE ALSO:
  - aggregate.go: sorts ledger rows by PeriodKey
  - types.go: raw records carry unvalidated period strings
*/
package ledger

import (
	"fmt"
	"regexp"
	"time"
)

// =============================================================================
// PERIOD KEY - "YYYY-MM", zero-padded, fixed-width
// =============================================================================

type PeriodKey string

var periodKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ParsePeriodKey validates the "YYYY-MM" shape. Malformed keys are the
// one input error the aggregator tolerates (the offending record is
// dropped); callers ingesting user input should reject the error instead.
func ParsePeriodKey(s string) (PeriodKey, error) {
	if !periodKeyPattern.MatchString(s) {
		return "", &MalformedPeriodKeyError{Raw: s}
	}
	return PeriodKey(s), nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) PeriodKey {
	return PeriodKey(t.Format("2006-01"))
}

func (p PeriodKey) Valid() bool               { return periodKeyPattern.MatchString(string(p)) }
func (p PeriodKey) Before(o PeriodKey) bool   { return p < o }
func (p PeriodKey) After(o PeriodKey) bool    { return p > o }
func (p PeriodKey) AtOrBefore(o PeriodKey) bool { return p <= o }
func (p PeriodKey) String() string            { return string(p) }

// =============================================================================
// ERRORS
// =============================================================================

// MalformedPeriodKeyError reports a raw period string that does not match
// the "YYYY-MM" shape.
type MalformedPeriodKeyError struct {
	Raw string
}

func (e *MalformedPeriodKeyError) Error() string {
	return fmt.Sprintf("malformed period key: %q (want YYYY-MM)", e.Raw)
}

func (e *MalformedPeriodKeyError) Unwrap() error { return ErrMalformedPeriodKey }
