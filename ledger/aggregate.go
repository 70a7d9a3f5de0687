/*
aggregate.go - Fold raw period records into the canonical ledger

PURPOSE:
  The single entry point of the package. Groups raw records by period key,
  sums charges and payments, derives the exact balance, and classifies each
  period's status relative to nowPeriod.

CLASSIFICATION PRECEDENCE (first match wins):
  1. FutureHint set and balance >= 0          -> future
  2. balance < 0                              -> credit
  3. balance > 0, paid > 0                    -> partial
  4. balance > 0, paid == 0                   -> due if period <= now, else future
  5. balance == 0                             -> paid if period <= now, else future

EDGE CASES:
  - Malformed period keys: record dropped, aggregation continues
  - Empty input: empty ledger, not an error

SEE ALSO:
  - types.go: row and status definitions
  - allocation: consumes the output
*/
package ledger

import "sort"

// =============================================================================
// AGGREGATION - map-of-builders fold, finalized into a sorted slice
// =============================================================================

type rowBuilder struct {
	charge     Money
	paid       Money
	futureHint bool
}

// Aggregate produces exactly one LedgerRow per distinct valid period key,
// sorted ascending. Records with malformed period keys are dropped: a
// single bad row must never take the whole ledger down.
func Aggregate(records []PeriodRecord, nowPeriod PeriodKey) []LedgerRow {
	builders := make(map[PeriodKey]*rowBuilder)

	for _, rec := range records {
		key, err := ParsePeriodKey(rec.Period)
		if err != nil {
			continue
		}
		b, ok := builders[key]
		if !ok {
			b = &rowBuilder{charge: Zero(), paid: Zero()}
			builders[key] = b
		}
		b.charge = b.charge.Add(rec.Charge)
		b.paid = b.paid.Add(rec.Paid)
		if rec.FutureHint {
			b.futureHint = true
		}
	}

	rows := make([]LedgerRow, 0, len(builders))
	for key, b := range builders {
		balance := b.charge.Sub(b.paid)
		rows = append(rows, LedgerRow{
			Period:  key,
			Charge:  b.charge,
			Paid:    b.paid,
			Balance: balance,
			Status:  classify(b, balance, key, nowPeriod),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Period.Before(rows[j].Period) })
	return rows
}

// classify is a pure function of (charge, paid, hint, period, nowPeriod).
func classify(b *rowBuilder, balance Money, period, nowPeriod PeriodKey) Status {
	switch {
	case b.futureHint && !balance.IsNegative():
		// A hinted future period leaves future status early only via
		// prepayment (negative balance).
		return StatusFuture
	case balance.IsNegative():
		return StatusCredit
	case balance.IsPositive() && b.paid.IsPositive():
		return StatusPartial
	case balance.IsPositive():
		if period.AtOrBefore(nowPeriod) {
			return StatusDue
		}
		return StatusFuture
	default: // balance == 0
		if period.AtOrBefore(nowPeriod) {
			return StatusPaid
		}
		return StatusFuture
	}
}

// =============================================================================
// DERIVED READS
// =============================================================================

// MonthsDue counts rows currently payable (due or partial). This is the
// arrears figure the allocator's gating rule is driven by.
func MonthsDue(rows []LedgerRow) int {
	n := 0
	for _, r := range rows {
		if r.Status.Payable() {
			n++
		}
	}
	return n
}

// OutstandingTotal sums the balance of payable rows. This is the fixed
// amount an automatic settlement must cover.
func OutstandingTotal(rows []LedgerRow) Money {
	total := Zero()
	for _, r := range rows {
		if r.Status.Payable() {
			total = total.Add(r.Balance)
		}
	}
	return total
}

// Find returns the row for the given period, if present.
func Find(rows []LedgerRow, period PeriodKey) (LedgerRow, bool) {
	for _, r := range rows {
		if r.Period == period {
			return r, true
		}
	}
	return LedgerRow{}, false
}
