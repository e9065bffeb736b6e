package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashakarcz/passify/internal/history"
)

// historyLockKey serializes trims across passify instances sharing a database
const historyLockKey int64 = 0x70617373 // "pass"

// HistoryStore keeps password history in PostgreSQL
type HistoryStore struct {
	store      *Store
	maxEntries int
}

// NewHistoryStore creates a history store capped at maxEntries rows
func NewHistoryStore(store *Store, maxEntries int) *HistoryStore {
	if maxEntries <= 0 {
		maxEntries = history.DefaultMaxEntries
	}
	return &HistoryStore{store: store, maxEntries: maxEntries}
}

// Save inserts a password and trims the table to the newest rows
func (h *HistoryStore) Save(ctx context.Context, password string) error {
	tx, err := h.store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", historyLockKey); err != nil {
		return fmt.Errorf("failed to acquire history lock: %w", err)
	}

	insert := `
		INSERT INTO password_history (password, created_at)
		VALUES ($1, $2)
	`
	if _, err := tx.Exec(ctx, insert, password, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	trim := `
		DELETE FROM password_history
		WHERE id NOT IN (
			SELECT id FROM password_history
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		)
	`
	if _, err := tx.Exec(ctx, trim, h.maxEntries); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit history entry: %w", err)
	}
	return nil
}

// List returns history entries newest first
func (h *HistoryStore) List(ctx context.Context) ([]history.Entry, error) {
	entries, err := h.query(ctx, "DESC")
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Export renders the history oldest first in the flat file format
func (h *HistoryStore) Export(ctx context.Context) (string, error) {
	entries, err := h.query(ctx, "ASC")
	if err != nil {
		return "", err
	}
	return renderExport(entries), nil
}

// Clear deletes every history entry
func (h *HistoryStore) Clear(ctx context.Context) error {
	if _, err := h.store.pool.Exec(ctx, "DELETE FROM password_history"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// query loads all rows ordered by creation time in the given direction
func (h *HistoryStore) query(ctx context.Context, direction string) ([]history.Entry, error) {
	query := `
		SELECT password, created_at
		FROM password_history
		ORDER BY created_at ` + direction + `, id ` + direction

	rows, err := h.store.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []history.Entry{}
	for rows.Next() {
		var password string
		var createdAt time.Time
		if err := rows.Scan(&password, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, newEntry(createdAt, password))
	}

	return entries, rows.Err()
}

func newEntry(createdAt time.Time, password string) history.Entry {
	ts := createdAt.UTC().Truncate(time.Second)
	return history.Entry{
		Timestamp: ts,
		Password:  password,
		Line:      history.FormatLine(ts, password),
	}
}

// renderExport joins entries as newline-terminated lines
func renderExport(entries []history.Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Line)
		b.WriteByte('\n')
	}
	return b.String()
}

var _ history.Store = (*HistoryStore)(nil)
