/*
Package memory provides an in-memory implementation of the storage
interfaces.

PURPOSE:
  Used by tests and demos. Behavior mirrors store/sqlite: append-only
  records, monotonically versioned rules, receipts plus paid records
  written together.

THREAD SAFETY:
  Guarded by a single RWMutex; good enough for tests, not a benchmark
  target.

SEE ALSO:
  - store: interface definitions
  - store/sqlite: production implementation
*/
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/previsora/billing-engine/allocation"
	"github.com/previsora/billing-engine/ledger"
	"github.com/previsora/billing-engine/pricing"
	"github.com/previsora/billing-engine/store"
)

// Store is the in-memory implementation of store.Store.
type Store struct {
	mu       sync.RWMutex
	records  map[string][]ledger.PeriodRecord
	rules    []pricing.Rules
	payments map[string][]store.Receipt
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		records:  make(map[string][]ledger.PeriodRecord),
		payments: make(map[string][]store.Receipt),
	}
}

// =============================================================================
// RECORD STORE
// =============================================================================

func (s *Store) AppendRecords(_ context.Context, groupID string, records []ledger.PeriodRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[groupID] = append(s.records[groupID], records...)
	return nil
}

func (s *Store) Records(_ context.Context, groupID string) ([]ledger.PeriodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.records[groupID]
	out := make([]ledger.PeriodRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// =============================================================================
// RULES STORE
// =============================================================================

func (s *Store) SaveRules(_ context.Context, rules pricing.Rules) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules.Version = len(s.rules) + 1
	s.rules = append(s.rules, rules)
	return rules.Version, nil
}

func (s *Store) LatestRules(_ context.Context) (pricing.Rules, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.rules) == 0 {
		return pricing.Rules{}, store.ErrNoRules
	}
	return s.rules[len(s.rules)-1], nil
}

func (s *Store) RulesByVersion(_ context.Context, version int) (pricing.Rules, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if version < 1 || version > len(s.rules) {
		return pricing.Rules{}, store.ErrRulesVersionNotFound
	}
	return s.rules[version-1], nil
}

// =============================================================================
// PAYMENT STORE
// =============================================================================

func (s *Store) ApplyAllocation(_ context.Context, groupID string, result allocation.AllocationResult) (store.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	receipt := store.Receipt{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		Strategy:  result.Strategy,
		Total:     result.TotalApplied,
		CreatedAt: time.Now().UTC(),
	}
	s.payments[groupID] = append([]store.Receipt{receipt}, s.payments[groupID]...)

	for _, entry := range result.AppliedBreakdown {
		s.records[groupID] = append(s.records[groupID], ledger.PeriodRecord{
			Period: entry.Period.String(),
			Charge: ledger.Zero(),
			Paid:   entry.Amount,
		})
	}
	return receipt, nil
}

func (s *Store) Payments(_ context.Context, groupID string) ([]store.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Receipt, len(s.payments[groupID]))
	copy(out, s.payments[groupID])
	return out, nil
}
