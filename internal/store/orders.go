package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UpsertOrder stores an order idempotently keyed by (account, order number,
// vendor). The first insert of an order also accumulates its items into the
// inventory ledger; reprocessing the same order updates the order row and
// replaces its items but never double-counts inventory.
func (s *SQLiteStore) UpsertOrder(ctx context.Context, account string, o *Order) (bool, error) {
	if account == "" {
		account = DefaultAccount
	}
	if o == nil || o.OrderNumber == "" {
		return false, fmt.Errorf("order number is required")
	}

	now := time.Now().UTC()
	status := o.Status
	if status == "" {
		status = "pending"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM orders WHERE account = ? AND order_number = ? AND vendor = ?",
		account, o.OrderNumber, o.Vendor,
	).Scan(&existingID)

	created := false
	switch {
	case err == sql.ErrNoRows:
		result, err := tx.ExecContext(ctx,
			`INSERT INTO orders (account, order_number, vendor, total, order_date, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			account, o.OrderNumber, o.Vendor, o.Total, o.OrderDate, status, now, now,
		)
		if err != nil {
			return false, fmt.Errorf("inserting order: %w", err)
		}
		existingID, err = result.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("getting order id: %w", err)
		}
		created = true
	case err != nil:
		return false, fmt.Errorf("looking up order: %w", err)
	default:
		_, err = tx.ExecContext(ctx,
			"UPDATE orders SET total = ?, order_date = ?, status = ?, updated_at = ? WHERE id = ?",
			o.Total, o.OrderDate, status, now, existingID,
		)
		if err != nil {
			return false, fmt.Errorf("updating order: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = ?", existingID); err != nil {
			return false, fmt.Errorf("clearing order items: %w", err)
		}
	}

	for i, item := range o.Items {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, position, name, quantity, unit_price) VALUES (?, ?, ?, ?, ?)",
			existingID, i, item.Name, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return false, fmt.Errorf("inserting order item: %w", err)
		}
	}

	// Inventory only accumulates on first sight of an order, so replaying a
	// mailbox never inflates quantities.
	if created {
		for _, item := range o.Items {
			if err := accumulateInventory(ctx, tx, account, o.OrderNumber, item, now); err != nil {
				return false, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing order: %w", err)
	}

	o.ID = existingID
	o.Account = account
	o.Status = status
	o.UpdatedAt = now
	if created {
		o.CreatedAt = now
	}
	return created, nil
}

// GetOrder retrieves one order with its items, or nil when absent.
func (s *SQLiteStore) GetOrder(ctx context.Context, account, orderNumber, vendor string) (*Order, error) {
	if account == "" {
		account = DefaultAccount
	}

	o := &Order{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account, order_number, vendor, total, order_date, status, created_at, updated_at
		 FROM orders WHERE account = ? AND order_number = ? AND vendor = ?`,
		account, orderNumber, vendor,
	).Scan(&o.ID, &o.Account, &o.OrderNumber, &o.Vendor, &o.Total, &o.OrderDate, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting order %s/%s: %w", vendor, orderNumber, err)
	}

	if err := s.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders returns orders for an account, newest first.
func (s *SQLiteStore) ListOrders(ctx context.Context, account string, opts ListOpts) ([]*Order, error) {
	if account == "" {
		account = DefaultAccount
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	query := `SELECT id, account, order_number, vendor, total, order_date, status, created_at, updated_at
	          FROM orders WHERE account = ?`
	args := []interface{}{account}
	if opts.Vendor != "" {
		query += " AND vendor = ?"
		args = append(args, opts.Vendor)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o := &Order{}
		if err := rows.Scan(&o.ID, &o.Account, &o.OrderNumber, &o.Vendor, &o.Total,
			&o.OrderDate, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		if err := s.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *SQLiteStore) loadItems(ctx context.Context, o *Order) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, order_id, name, quantity, unit_price FROM order_items WHERE order_id = ? ORDER BY position",
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}
	defer rows.Close()

	o.Items = nil
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return fmt.Errorf("scanning item row: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}
