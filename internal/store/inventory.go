package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// InventoryKey normalizes an item name into the ledger key: case-folded,
// with runs of non-alphanumeric characters collapsed to single hyphens and
// leading/trailing hyphens trimmed.
func InventoryKey(name string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// accumulateInventory applies one order item to the ledger inside an open
// transaction: quantity adds up, the unit price and order reference replace
// the previous ones.
func accumulateInventory(ctx context.Context, tx *sql.Tx, account, orderNumber string, item OrderItem, now time.Time) error {
	key := InventoryKey(item.Name)
	if key == "" || item.Quantity <= 0 {
		return nil
	}

	var (
		id       int64
		quantity int
		refsJSON string
	)
	err := tx.QueryRowContext(ctx,
		"SELECT id, quantity, order_refs FROM inventory WHERE account = ? AND item_key = ?",
		account, key,
	).Scan(&id, &quantity, &refsJSON)

	switch {
	case err == sql.ErrNoRows:
		refs, _ := json.Marshal([]string{orderNumber})
		_, err := tx.ExecContext(ctx,
			`INSERT INTO inventory (account, item_key, name, quantity, last_order_price, last_updated, order_refs)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			account, key, item.Name, item.Quantity, item.UnitPrice, now, string(refs),
		)
		if err != nil {
			return fmt.Errorf("inserting inventory %q: %w", key, err)
		}
	case err != nil:
		return fmt.Errorf("looking up inventory %q: %w", key, err)
	default:
		var refs []string
		if err := json.Unmarshal([]byte(refsJSON), &refs); err != nil {
			refs = nil
		}
		refs = appendUniqueRef(refs, orderNumber)
		refsOut, _ := json.Marshal(refs)

		_, err := tx.ExecContext(ctx,
			`UPDATE inventory SET quantity = ?, last_order_price = ?, last_updated = ?, order_refs = ? WHERE id = ?`,
			quantity+item.Quantity, item.UnitPrice, now, string(refsOut), id,
		)
		if err != nil {
			return fmt.Errorf("updating inventory %q: %w", key, err)
		}
	}
	return nil
}

func appendUniqueRef(refs []string, ref string) []string {
	for _, r := range refs {
		if r == ref {
			return refs
		}
	}
	return append(refs, ref)
}

// ListInventory returns the account's ledger ordered by item key.
func (s *SQLiteStore) ListInventory(ctx context.Context, account string) ([]*InventoryEntry, error) {
	if account == "" {
		account = DefaultAccount
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account, item_key, name, quantity, last_order_price, last_updated, order_refs
		 FROM inventory WHERE account = ? ORDER BY item_key`,
		account,
	)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	defer rows.Close()

	var entries []*InventoryEntry
	for rows.Next() {
		e, err := scanInventory(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetInventory returns one ledger entry by key, or nil when absent.
func (s *SQLiteStore) GetInventory(ctx context.Context, account, key string) (*InventoryEntry, error) {
	if account == "" {
		account = DefaultAccount
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, account, item_key, name, quantity, last_order_price, last_updated, order_refs
		 FROM inventory WHERE account = ? AND item_key = ?`,
		account, key,
	)
	e, err := scanInventory(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting inventory %q: %w", key, err)
	}
	return e, nil
}

func scanInventory(scan func(...interface{}) error) (*InventoryEntry, error) {
	e := &InventoryEntry{}
	var refsJSON string
	if err := scan(&e.ID, &e.Account, &e.Key, &e.Name, &e.Quantity,
		&e.LastOrderPrice, &e.LastUpdated, &refsJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(refsJSON), &e.OrderRefs); err != nil {
		e.OrderRefs = nil
	}
	return e, nil
}
