package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// SQLiteDeliveryStore implements DeliveryStore backed by SQLite.
type SQLiteDeliveryStore struct {
	db *sql.DB
}

// NewSQLiteDeliveryStore returns a new SQLiteDeliveryStore.
func NewSQLiteDeliveryStore(db *sql.DB) *SQLiteDeliveryStore {
	return &SQLiteDeliveryStore{db: db}
}

// LogDelivery inserts a delivery outcome into the database.
func (s *SQLiteDeliveryStore) LogDelivery(ctx context.Context, e DeliveryLogEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_log (batch_id, product_id, entry_id, email, language, state, error_msg, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.BatchID, e.ProductID, e.EntryID, e.Email, e.Language,
		e.State, e.ErrorMsg, e.DurationMS, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting delivery log: %w", err)
	}
	return nil
}

// ListDeliveries returns outcomes ordered by created_at descending.
func (s *SQLiteDeliveryStore) ListDeliveries(ctx context.Context, f DeliveryFilter) (entries []DeliveryLogEntry, err error) {
	var (
		where []string
		args  []any
	)
	if f.ProductID != "" {
		where = append(where, "product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.State != "" {
		where = append(where, "state = ?")
		args = append(args, f.State)
	}

	q := `SELECT id, batch_id, product_id, entry_id, email, language, state, error_msg, duration_ms, created_at
		FROM delivery_log`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, clampLimit(f.Limit))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying delivery log: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var e DeliveryLogEntry
		if err := rows.Scan(&e.ID, &e.BatchID, &e.ProductID, &e.EntryID, &e.Email,
			&e.Language, &e.State, &e.ErrorMsg, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning delivery log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating delivery log rows: %w", err)
	}
	return entries, nil
}

// LogBatch upserts a batch summary.
func (s *SQLiteDeliveryStore) LogBatch(ctx context.Context, b BatchSummary) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatch_batches (batch_id, total, sent, deleted, send_failed, delete_failed, render_failed, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(batch_id) DO UPDATE SET
			total = excluded.total,
			sent = excluded.sent,
			deleted = excluded.deleted,
			send_failed = excluded.send_failed,
			delete_failed = excluded.delete_failed,
			render_failed = excluded.render_failed,
			duration_ms = excluded.duration_ms`,
		b.BatchID, b.Total, b.Sent, b.Deleted, b.SendFailed, b.DeleteFailed,
		b.RenderFailed, b.DurationMS, b.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting batch summary: %w", err)
	}
	return nil
}

// ListBatches returns batch summaries ordered by created_at descending.
func (s *SQLiteDeliveryStore) ListBatches(ctx context.Context, limit int) (batches []BatchSummary, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, total, sent, deleted, send_failed, delete_failed, render_failed, duration_ms, created_at
		FROM dispatch_batches
		ORDER BY created_at DESC
		LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var b BatchSummary
		if err := rows.Scan(&b.BatchID, &b.Total, &b.Sent, &b.Deleted, &b.SendFailed,
			&b.DeleteFailed, &b.RenderFailed, &b.DurationMS, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning batch row: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batch rows: %w", err)
	}
	return batches, nil
}

// PruneBefore deletes audit rows older than cutoff in one transaction.
func (s *SQLiteDeliveryStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var total int64
	for _, table := range []string{"delivery_log", "dispatch_batches"} {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE created_at < ?", cutoff.UTC())
		if err != nil {
			return 0, fmt.Errorf("pruning %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("pruning %s: %w", table, err)
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return total, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
