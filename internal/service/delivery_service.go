package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shaharia-lab/restock-notifier/internal/dispatch"
	"github.com/shaharia-lab/restock-notifier/internal/eventbus"
	"github.com/shaharia-lab/restock-notifier/internal/storage"
)

const recordTimeout = 5 * time.Second

// DeliveryService records dispatch outcomes and exposes the audit log.
type DeliveryService interface {
	// ListDeliveries returns the most recent per-recipient outcomes.
	ListDeliveries(ctx context.Context, f storage.DeliveryFilter) ([]storage.DeliveryLogEntry, error)
	// ListBatches returns the most recent batch summaries.
	ListBatches(ctx context.Context, limit int) ([]storage.BatchSummary, error)
	// Prune removes audit rows older than retention. A non-positive retention
	// keeps everything.
	Prune(ctx context.Context, retention time.Duration) (int64, error)
	// Listen is an eventbus.Listener that persists dispatch outcome events.
	Listen(e eventbus.Event)
}

type deliveryService struct {
	store  storage.DeliveryStore
	logger *slog.Logger
	now    func() time.Time
}

// NewDeliveryService constructs a DeliveryService backed by store.
func NewDeliveryService(store storage.DeliveryStore, logger *slog.Logger) DeliveryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &deliveryService{store: store, logger: logger, now: time.Now}
}

var knownStates = map[string]bool{
	string(dispatch.StateDeleted):      true,
	string(dispatch.StateSendFailed):   true,
	string(dispatch.StateDeleteFailed): true,
	string(dispatch.StateRenderFailed): true,
}

func (s *deliveryService) ListDeliveries(ctx context.Context, f storage.DeliveryFilter) ([]storage.DeliveryLogEntry, error) {
	if f.Limit < 0 {
		return nil, &ValidationError{Field: "limit", Message: "must not be negative"}
	}
	if f.State != "" && !knownStates[f.State] {
		return nil, &ValidationError{Field: "state", Message: fmt.Sprintf("unknown state %q", f.State)}
	}
	entries, err := s.store.ListDeliveries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}
	if entries == nil {
		entries = []storage.DeliveryLogEntry{}
	}
	return entries, nil
}

func (s *deliveryService) ListBatches(ctx context.Context, limit int) ([]storage.BatchSummary, error) {
	if limit < 0 {
		return nil, &ValidationError{Field: "limit", Message: "must not be negative"}
	}
	batches, err := s.store.ListBatches(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	if batches == nil {
		batches = []storage.BatchSummary{}
	}
	return batches, nil
}

func (s *deliveryService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	n, err := s.store.PruneBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("pruning delivery log: %w", err)
	}
	return n, nil
}

func (s *deliveryService) Listen(e eventbus.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	switch e.Type {
	case eventbus.EventDeliverySent,
		eventbus.EventDeliverySendFailed,
		eventbus.EventDeliveryDeleteFailed,
		eventbus.EventDeliveryRenderFailed:
		entry := storage.DeliveryLogEntry{
			BatchID:    e.Payload["batch_id"],
			ProductID:  e.Payload["product_id"],
			EntryID:    e.Payload["entry_id"],
			Email:      e.Payload["email"],
			Language:   e.Payload["language"],
			State:      e.Payload["state"],
			ErrorMsg:   e.Payload["error"],
			DurationMS: parseInt64(e.Payload["duration_ms"]),
			CreatedAt:  e.Timestamp,
		}
		if err := s.store.LogDelivery(ctx, entry); err != nil {
			s.logger.Error("failed to record delivery", "batch_id", entry.BatchID, "entry_id", entry.EntryID, "error", err)
		}
	case eventbus.EventBatchCompleted:
		b := storage.BatchSummary{
			BatchID:      e.Payload["batch_id"],
			Total:        parseInt(e.Payload["total"]),
			Sent:         parseInt(e.Payload["sent"]),
			Deleted:      parseInt(e.Payload["deleted"]),
			SendFailed:   parseInt(e.Payload["send_failed"]),
			DeleteFailed: parseInt(e.Payload["delete_failed"]),
			RenderFailed: parseInt(e.Payload["render_failed"]),
			DurationMS:   parseInt64(e.Payload["duration_ms"]),
			CreatedAt:    e.Timestamp,
		}
		if err := s.store.LogBatch(ctx, b); err != nil {
			s.logger.Error("failed to record batch", "batch_id", b.BatchID, "error", err)
		}
	}
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
