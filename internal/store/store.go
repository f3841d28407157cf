// Package store provides the SQLite persistence layer for mailorder.
//
// All order data lives in a single SQLite database file, including:
// - Parsed orders with their line items
// - A per-account inventory ledger accumulated from order items
// - A processed-message log for idempotent reprocessing
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.mailorder/mailorder.db"

// DefaultAccount scopes data when no account id is configured.
const DefaultAccount = "default"

// Order is a persisted purchase order.
type Order struct {
	ID          int64
	Account     string
	OrderNumber string
	Vendor      string
	Total       float64
	OrderDate   time.Time
	Status      string
	Items       []OrderItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderItem is one line item belonging to an order.
type OrderItem struct {
	ID        int64
	OrderID   int64
	Name      string
	Quantity  int
	UnitPrice float64
}

// InventoryEntry is one row of the accumulated inventory ledger.
type InventoryEntry struct {
	ID             int64
	Account        string
	Key            string
	Name           string
	Quantity       int
	LastOrderPrice float64
	LastUpdated    time.Time
	OrderRefs      []string
}

// MessageOutcome records how a source message was handled.
type MessageOutcome string

const (
	OutcomeParsed   MessageOutcome = "parsed"
	OutcomeRejected MessageOutcome = "rejected"
	OutcomeError    MessageOutcome = "error"
)

// MessageLog is one entry in the processed-message log.
type MessageLog struct {
	ID          int64
	Account     string
	MessageID   string
	Outcome     MessageOutcome
	OrderNumber string
	Note        string
	ProcessedAt time.Time
}

// ListOpts controls pagination for List operations.
type ListOpts struct {
	Limit  int
	Offset int
	Vendor string // filter by vendor name
}

// StoreStats holds observability statistics about the store.
type StoreStats struct {
	OrderCount     int64
	ItemCount      int64
	InventoryCount int64
	MessageCount   int64
	DBSizeBytes    int64
}

// StoreConfig holds configuration for NewStore.
type StoreConfig struct {
	DBPath string
}

// Store defines the order-store interface consumed by the pipeline.
type Store interface {
	// Orders. UpsertOrder is idempotent keyed by (account, order number,
	// vendor); created reports whether this call inserted a new order.
	UpsertOrder(ctx context.Context, account string, o *Order) (created bool, err error)
	GetOrder(ctx context.Context, account, orderNumber, vendor string) (*Order, error)
	ListOrders(ctx context.Context, account string, opts ListOpts) ([]*Order, error)

	// Inventory ledger.
	ListInventory(ctx context.Context, account string) ([]*InventoryEntry, error)
	GetInventory(ctx context.Context, account, key string) (*InventoryEntry, error)

	// Processed-message log.
	IsMessageProcessed(ctx context.Context, account, messageID string) (bool, error)
	LogMessage(ctx context.Context, m *MessageLog) error

	// Observability
	Stats(ctx context.Context) (*StoreStats, error)

	// Maintenance
	Vacuum(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store on a single SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new SQLite-backed Store.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg StoreConfig) (Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}

	// Create parent directory for non-memory databases
	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Vacuum runs VACUUM on the database. Manual only, never automatic.
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Stats returns row counts and the database size on disk.
func (s *SQLiteStore) Stats(ctx context.Context) (*StoreStats, error) {
	stats := &StoreStats{}

	counts := []struct {
		query string
		dst   *int64
	}{
		{"SELECT COUNT(*) FROM orders", &stats.OrderCount},
		{"SELECT COUNT(*) FROM order_items", &stats.ItemCount},
		{"SELECT COUNT(*) FROM inventory", &stats.InventoryCount},
		{"SELECT COUNT(*) FROM messages", &stats.MessageCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("counting rows: %w", err)
		}
	}

	if s.dbPath != ":memory:" {
		if fi, err := os.Stat(s.dbPath); err == nil {
			stats.DBSizeBytes = fi.Size()
		}
	}
	return stats, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
