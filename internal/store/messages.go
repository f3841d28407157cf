package store

import (
	"context"
	"fmt"
	"time"
)

// IsMessageProcessed reports whether a source message was already handled
// for this account, in any outcome.
func (s *SQLiteStore) IsMessageProcessed(ctx context.Context, account, messageID string) (bool, error) {
	if account == "" {
		account = DefaultAccount
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE account = ? AND message_id = ?",
		account, messageID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking message %q: %w", messageID, err)
	}
	return count > 0, nil
}

// LogMessage records a processed message. Replaying the same message id
// updates the existing entry instead of failing, so a rejected message can
// later be recorded as parsed after a registry improvement.
func (s *SQLiteStore) LogMessage(ctx context.Context, m *MessageLog) error {
	if m == nil || m.MessageID == "" {
		return fmt.Errorf("message id is required")
	}
	account := m.Account
	if account == "" {
		account = DefaultAccount
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (account, message_id, outcome, order_number, note, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(account, message_id) DO UPDATE SET
		   outcome = excluded.outcome,
		   order_number = excluded.order_number,
		   note = excluded.note,
		   processed_at = excluded.processed_at`,
		account, m.MessageID, string(m.Outcome), m.OrderNumber, m.Note, now,
	)
	if err != nil {
		return fmt.Errorf("logging message %q: %w", m.MessageID, err)
	}

	m.Account = account
	m.ProcessedAt = now
	return nil
}
