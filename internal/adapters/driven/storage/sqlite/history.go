package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

// historyStore implements driven.HistoryStore. Entries are JSON rows
// ordered by an autoincrement sequence.
type historyStore struct {
	db *sql.DB
}

var _ driven.HistoryStore = (*historyStore)(nil)

// Get returns the user's entries, most recent first.
func (h *historyStore) Get(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	rows, err := h.db.QueryContext(ctx,
		"SELECT entry FROM history_entries WHERE user_id = ? ORDER BY seq DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		var e domain.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("unmarshalling history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}

// Append adds entry and drops everything beyond capacity in one transaction.
func (h *historyStore) Append(ctx context.Context, userID string, entry domain.HistoryEntry, capacity int) error {
	if capacity <= 0 {
		capacity = domain.DefaultHistoryCapacity
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshalling history entry: %w", err)
	}
	return inTx(ctx, h.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO history_entries (user_id, entry) VALUES (?, ?)", userID, string(raw)); err != nil {
			return fmt.Errorf("appending history: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM history_entries
			WHERE user_id = ? AND seq NOT IN (
				SELECT seq FROM history_entries WHERE user_id = ? ORDER BY seq DESC LIMIT ?
			)
		`, userID, userID, capacity); err != nil {
			return fmt.Errorf("trimming history: %w", err)
		}
		return nil
	})
}

// Close is a no-op; the database belongs to the Store.
func (h *historyStore) Close() error {
	return nil
}
