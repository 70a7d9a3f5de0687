/*
Package store defines the persistence interfaces the engines sit on top of.

PURPOSE:
  The engines (ledger, allocation, pricing, commission) are pure; this
  package names what the surrounding service needs from storage:

  RecordStore:  raw period records per client group (append + load)
  RulesStore:   immutable, versioned pricing rules
  PaymentStore: committed payment receipts

CONCURRENCY AT THE BOUNDARY:
  The one race the engines cannot see is read-then-write: the ledger
  snapshot a payment was validated against may be stale at commit time.
  GroupLocks serializes payment application per client group so the
  caller can re-aggregate and re-validate inside the critical section
  before persisting.

IMPLEMENTATIONS:
  - store/sqlite: production store
  - store/memory: in-memory store for tests and demos
  - store/rulescache: Redis cache-aside wrapper around a RulesStore

SEE ALSO:
  - api/handlers.go: commit path using GroupLocks
*/
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/previsora/billing-engine/allocation"
	"github.com/previsora/billing-engine/ledger"
	"github.com/previsora/billing-engine/pricing"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrNoRules is returned when no pricing rules version exists yet.
	ErrNoRules = errors.New("no pricing rules stored")

	// ErrRulesVersionNotFound is returned for an unknown rules version.
	ErrRulesVersionNotFound = errors.New("pricing rules version not found")
)

// =============================================================================
// INTERFACES
// =============================================================================

// RecordStore persists raw period records. Records are append-only: a
// payment or correction is a new record, never an update.
type RecordStore interface {
	// AppendRecords adds raw records for a group.
	AppendRecords(ctx context.Context, groupID string, records []ledger.PeriodRecord) error

	// Records returns all raw records for a group, insertion order.
	Records(ctx context.Context, groupID string) ([]ledger.PeriodRecord, error)
}

// RulesStore persists versioned pricing rules. Versions are immutable;
// tuning the tariff creates the next version.
type RulesStore interface {
	// SaveRules stores a new version and returns its assigned number.
	SaveRules(ctx context.Context, rules pricing.Rules) (int, error)

	// LatestRules returns the highest stored version.
	LatestRules(ctx context.Context) (pricing.Rules, error)

	// RulesByVersion returns one specific version.
	RulesByVersion(ctx context.Context, version int) (pricing.Rules, error)
}

// Receipt records one committed payment application.
type Receipt struct {
	ID        string
	GroupID   string
	Strategy  allocation.Strategy
	Total     ledger.Money
	CreatedAt time.Time
}

// PaymentStore persists committed allocations. ApplyAllocation must, in
// one atomic step, write the receipt and append one paid period record
// per breakdown entry so the next aggregation reflects the payment.
type PaymentStore interface {
	ApplyAllocation(ctx context.Context, groupID string, result allocation.AllocationResult) (Receipt, error)

	// Payments returns the receipts for a group, newest first.
	Payments(ctx context.Context, groupID string) ([]Receipt, error)
}

// Store bundles the three persistence concerns.
type Store interface {
	RecordStore
	RulesStore
	PaymentStore
}

// =============================================================================
// GROUP LOCKS - At-most-one in-flight payment application per group
// =============================================================================

// GroupLocks hands out one mutex per client group key. It backs the
// commit path's critical section: lock, re-aggregate, re-validate,
// persist, unlock.
type GroupLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewGroupLocks() *GroupLocks {
	return &GroupLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for groupID, creating it on first use, and
// returns the unlock function.
func (g *GroupLocks) Lock(groupID string) func() {
	g.mu.Lock()
	m, ok := g.locks[groupID]
	if !ok {
		m = &sync.Mutex{}
		g.locks[groupID] = m
	}
	g.mu.Unlock()

	m.Lock()
	return m.Unlock
}
