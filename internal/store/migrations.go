package store

import "fmt"

// migrate creates all tables if they don't exist.
func (s *SQLiteStore) migrate() error {
	bootstrapDone, err := s.isMetaFlagEnabled("schema_bootstrap_complete")
	if err != nil {
		return fmt.Errorf("checking bootstrap state: %w", err)
	}
	if bootstrapDone {
		return nil
	}

	if err := s.runBootstrapDDL(); err != nil {
		return err
	}
	if err := s.setMetaFlag("schema_bootstrap_complete"); err != nil {
		return fmt.Errorf("marking bootstrap complete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) runBootstrapDDL() error {
	statements := []string{
		// Orders, idempotent on (account, order_number, vendor)
		`CREATE TABLE IF NOT EXISTS orders (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			account      TEXT NOT NULL,
			order_number TEXT NOT NULL,
			vendor       TEXT NOT NULL,
			total        REAL NOT NULL DEFAULT 0,
			order_date   DATETIME,
			status       TEXT NOT NULL DEFAULT 'pending',
			created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(account, order_number, vendor)
		)`,

		`CREATE TABLE IF NOT EXISTS order_items (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id   INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			position   INTEGER NOT NULL DEFAULT 0,
			name       TEXT NOT NULL,
			quantity   INTEGER NOT NULL,
			unit_price REAL NOT NULL DEFAULT 0
		)`,

		// Inventory ledger, one row per normalized item name per account
		`CREATE TABLE IF NOT EXISTS inventory (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			account          TEXT NOT NULL,
			item_key         TEXT NOT NULL,
			name             TEXT NOT NULL,
			quantity         INTEGER NOT NULL DEFAULT 0,
			last_order_price REAL NOT NULL DEFAULT 0,
			last_updated     DATETIME DEFAULT CURRENT_TIMESTAMP,
			order_refs       TEXT NOT NULL DEFAULT '[]',
			UNIQUE(account, item_key)
		)`,

		// Processed-message log for per-message idempotence
		`CREATE TABLE IF NOT EXISTS messages (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			account      TEXT NOT NULL,
			message_id   TEXT NOT NULL,
			outcome      TEXT NOT NULL,
			order_number TEXT,
			note         TEXT,
			processed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(account, message_id)
		)`,

		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_orders_account ON orders(account)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_account ON inventory(account)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_account ON messages(account, message_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("bootstrap DDL: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) isMetaFlagEnabled(key string) (bool, error) {
	var exists int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='meta'",
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists == 0 {
		return false, nil
	}

	var value string
	err = s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err != nil {
		return false, nil
	}
	return value == "1", nil
}

func (s *SQLiteStore) setMetaFlag(key string) error {
	_, err := s.db.Exec(
		"INSERT INTO meta (key, value) VALUES (?, '1') ON CONFLICT(key) DO UPDATE SET value = '1'",
		key,
	)
	return err
}
