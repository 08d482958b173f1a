package storage

import (
	"context"
	"time"
)

// DeliveryLogEntry records the terminal outcome of one registration in a
// dispatch batch.
type DeliveryLogEntry struct {
	ID         int64     `json:"id"`
	BatchID    string    `json:"batch_id"`
	ProductID  string    `json:"product_id"`
	EntryID    string    `json:"entry_id"`
	Email      string    `json:"email"`
	Language   string    `json:"language"`
	State      string    `json:"state"`
	ErrorMsg   string    `json:"error_msg,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// BatchSummary records the counters of one settled dispatch batch.
type BatchSummary struct {
	BatchID      string    `json:"batch_id"`
	Total        int       `json:"total"`
	Sent         int       `json:"sent"`
	Deleted      int       `json:"deleted"`
	SendFailed   int       `json:"send_failed"`
	DeleteFailed int       `json:"delete_failed"`
	RenderFailed int       `json:"render_failed"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// DeliveryFilter narrows ListDeliveries. Zero values match everything.
type DeliveryFilter struct {
	ProductID string
	State     string
	Limit     int
}

// DeliveryStore defines the interface for the dispatch audit log.
type DeliveryStore interface {
	// LogDelivery records one per-recipient outcome.
	LogDelivery(ctx context.Context, entry DeliveryLogEntry) error
	// ListDeliveries returns the most recent outcomes matching f, newest first.
	ListDeliveries(ctx context.Context, f DeliveryFilter) ([]DeliveryLogEntry, error)
	// LogBatch records the summary of a settled batch.
	LogBatch(ctx context.Context, b BatchSummary) error
	// ListBatches returns the most recent batch summaries, newest first.
	ListBatches(ctx context.Context, limit int) ([]BatchSummary, error)
	// PruneBefore removes deliveries and batches created before cutoff and
	// returns the number of rows removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
