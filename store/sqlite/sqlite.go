/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements store.RecordStore, store.RulesStore, and store.PaymentStore
  using SQLite. In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  period_records and payments are append-only:
  - No UPDATE statements on either table
  - No DELETE statements on either table
  - A payment is new paid records, a correction is new records

KEY TABLES:
  period_records: raw charge/payment fragments, the aggregation input
  pricing_rules:  immutable versioned tariff JSON
  payments:       receipts with their breakdown

MONEY REPRESENTATION:
  Amounts are stored as decimal TEXT and parsed back through
  shopspring/decimal; the database never does float arithmetic.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - store: interface definitions
  - store/memory: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/previsora/billing-engine/allocation"
	"github.com/previsora/billing-engine/ledger"
	"github.com/previsora/billing-engine/pricing"
	"github.com/previsora/billing-engine/store"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Raw period records (append-only aggregation input)
	CREATE TABLE IF NOT EXISTS period_records (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL,
		period TEXT NOT NULL,
		charge TEXT NOT NULL,
		paid TEXT NOT NULL,
		future_hint INTEGER NOT NULL DEFAULT 0,
		source TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: load a group's full history for aggregation
	CREATE INDEX IF NOT EXISTS idx_period_records_group
		ON period_records(group_id, period);

	-- Versioned pricing rules (immutable rows)
	CREATE TABLE IF NOT EXISTS pricing_rules (
		version INTEGER PRIMARY KEY AUTOINCREMENT,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Payment receipts (append-only)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL,
		strategy TEXT NOT NULL,
		total TEXT NOT NULL,
		breakdown_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_group
		ON payments(group_id, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORD STORE
// =============================================================================

func (s *Store) AppendRecords(ctx context.Context, groupID string, records []ledger.PeriodRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		hint := 0
		if rec.FutureHint {
			hint = 1
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO period_records (id, group_id, period, charge, paid, future_hint, source, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), groupID, rec.Period,
			rec.Charge.String(), rec.Paid.String(), hint, "ingest", now)
		if err != nil {
			return fmt.Errorf("failed to insert period record: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) Records(ctx context.Context, groupID string) ([]ledger.PeriodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT period, charge, paid, future_hint
		 FROM period_records WHERE group_id = ? ORDER BY created_at, period`,
		groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ledger.PeriodRecord
	for rows.Next() {
		var period, charge, paid string
		var hint int
		if err := rows.Scan(&period, &charge, &paid, &hint); err != nil {
			return nil, err
		}
		records = append(records, ledger.PeriodRecord{
			Period:     period,
			Charge:     ledger.ParseMoney(charge),
			Paid:       ledger.ParseMoney(paid),
			FutureHint: hint != 0,
		})
	}
	return records, rows.Err()
}

// =============================================================================
// RULES STORE
// =============================================================================

func (s *Store) SaveRules(ctx context.Context, rules pricing.Rules) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := pricing.MarshalRules(rules)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize rules: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pricing_rules (config_json, created_at) VALUES (?, ?)`,
		string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	version, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(version), nil
}

func (s *Store) LatestRules(ctx context.Context) (pricing.Rules, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT version, config_json FROM pricing_rules ORDER BY version DESC LIMIT 1`)
	return scanRules(row, store.ErrNoRules)
}

func (s *Store) RulesByVersion(ctx context.Context, version int) (pricing.Rules, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT version, config_json FROM pricing_rules WHERE version = ?`, version)
	return scanRules(row, store.ErrRulesVersionNotFound)
}

func scanRules(row *sql.Row, missing error) (pricing.Rules, error) {
	var version int
	var configJSON string
	if err := row.Scan(&version, &configJSON); err != nil {
		if err == sql.ErrNoRows {
			return pricing.Rules{}, missing
		}
		return pricing.Rules{}, err
	}
	rules, err := pricing.ParseRules([]byte(configJSON))
	if err != nil {
		return pricing.Rules{}, fmt.Errorf("stored rules version %d is corrupt: %w", version, err)
	}
	rules.Version = version
	return rules, nil
}

// =============================================================================
// PAYMENT STORE
// =============================================================================

// ApplyAllocation writes the receipt and, atomically with it, one paid
// period record per breakdown entry. The next aggregation of the group's
// records reflects the payment.
func (s *Store) ApplyAllocation(ctx context.Context, groupID string, result allocation.AllocationResult) (store.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Receipt{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	receipt := store.Receipt{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		Strategy:  result.Strategy,
		Total:     result.TotalApplied,
		CreatedAt: now,
	}

	breakdown, err := json.Marshal(breakdownLines(result))
	if err != nil {
		return store.Receipt{}, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payments (id, group_id, strategy, total, breakdown_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		receipt.ID, groupID, string(result.Strategy),
		result.TotalApplied.String(), string(breakdown), now.Format(time.RFC3339))
	if err != nil {
		return store.Receipt{}, fmt.Errorf("failed to insert payment: %w", err)
	}

	for _, entry := range result.AppliedBreakdown {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO period_records (id, group_id, period, charge, paid, future_hint, source, created_at)
			 VALUES (?, ?, ?, '0', ?, 0, ?, ?)`,
			uuid.NewString(), groupID, entry.Period.String(),
			entry.Amount.String(), "payment:"+receipt.ID, now.Format(time.RFC3339))
		if err != nil {
			return store.Receipt{}, fmt.Errorf("failed to insert paid record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return store.Receipt{}, err
	}
	return receipt, nil
}

func (s *Store) Payments(ctx context.Context, groupID string) ([]store.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy, total, created_at
		 FROM payments WHERE group_id = ? ORDER BY created_at DESC`,
		groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []store.Receipt
	for rows.Next() {
		var r store.Receipt
		var strategy, total, createdAt string
		if err := rows.Scan(&r.ID, &strategy, &total, &createdAt); err != nil {
			return nil, err
		}
		r.GroupID = groupID
		r.Strategy = allocation.Strategy(strategy)
		r.Total = ledger.ParseMoney(total)
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

type breakdownLine struct {
	Period string `json:"period"`
	Amount string `json:"amount"`
}

func breakdownLines(result allocation.AllocationResult) []breakdownLine {
	lines := make([]breakdownLine, len(result.AppliedBreakdown))
	for i, entry := range result.AppliedBreakdown {
		lines[i] = breakdownLine{Period: entry.Period.String(), Amount: entry.Amount.String()}
	}
	return lines
}
