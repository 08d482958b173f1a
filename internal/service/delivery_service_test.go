package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/restock-notifier/internal/eventbus"
	"github.com/shaharia-lab/restock-notifier/internal/service"
	"github.com/shaharia-lab/restock-notifier/internal/storage"
	storagemocks "github.com/shaharia-lab/restock-notifier/internal/storage/mocks"
)

func TestDeliveryService_ListDeliveries(t *testing.T) {
	ctx := context.Background()

	t.Run("validates filter", func(t *testing.T) {
		store := new(storagemocks.MockDeliveryStore)
		svc := service.NewDeliveryService(store, nil)

		_, err := svc.ListDeliveries(ctx, storage.DeliveryFilter{Limit: -1})
		var ve *service.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "limit", ve.Field)

		_, err = svc.ListDeliveries(ctx, storage.DeliveryFilter{State: "BOGUS"})
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "state", ve.Field)

		store.AssertNotCalled(t, "ListDeliveries", mock.Anything, mock.Anything)
	})

	t.Run("passes filter through", func(t *testing.T) {
		store := new(storagemocks.MockDeliveryStore)
		svc := service.NewDeliveryService(store, nil)
		f := storage.DeliveryFilter{ProductID: "123", State: "SEND_FAILED", Limit: 5}
		store.On("ListDeliveries", ctx, f).Return([]storage.DeliveryLogEntry{{ID: 1}}, nil)

		got, err := svc.ListDeliveries(ctx, f)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("never returns nil slice", func(t *testing.T) {
		store := new(storagemocks.MockDeliveryStore)
		svc := service.NewDeliveryService(store, nil)
		store.On("ListDeliveries", ctx, mock.Anything).Return(nil, nil)

		got, err := svc.ListDeliveries(ctx, storage.DeliveryFilter{})
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("wraps store error", func(t *testing.T) {
		store := new(storagemocks.MockDeliveryStore)
		svc := service.NewDeliveryService(store, nil)
		boom := errors.New("disk full")
		store.On("ListDeliveries", ctx, mock.Anything).Return(nil, boom)

		_, err := svc.ListDeliveries(ctx, storage.DeliveryFilter{})
		assert.ErrorIs(t, err, boom)
	})
}

func TestDeliveryService_ListBatches(t *testing.T) {
	store := new(storagemocks.MockDeliveryStore)
	svc := service.NewDeliveryService(store, nil)

	_, err := svc.ListBatches(context.Background(), -5)
	assert.Error(t, err)

	store.On("ListBatches", mock.Anything, 10).Return(nil, nil)
	got, err := svc.ListBatches(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestDeliveryService_Prune(t *testing.T) {
	store := new(storagemocks.MockDeliveryStore)
	svc := service.NewDeliveryService(store, nil)

	n, err := svc.Prune(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
	store.AssertNotCalled(t, "PruneBefore", mock.Anything, mock.Anything)

	store.On("PruneBefore", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		return time.Since(cutoff) > 23*time.Hour && time.Since(cutoff) < 25*time.Hour
	})).Return(int64(7), nil)

	n, err = svc.Prune(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestDeliveryService_Listen(t *testing.T) {
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("delivery outcome", func(t *testing.T) {
		store := new(storagemocks.MockDeliveryStore)
		svc := service.NewDeliveryService(store, nil)

		store.On("LogDelivery", mock.Anything, storage.DeliveryLogEntry{
			BatchID:    "b1",
			ProductID:  "123",
			EntryID:    "e1",
			Email:      "a@example.com",
			Language:   "en",
			State:      "SEND_FAILED",
			ErrorMsg:   "550",
			DurationMS: 12,
			CreatedAt:  ts,
		}).Return(nil).Once()

		svc.Listen(eventbus.Event{
			Type:      eventbus.EventDeliverySendFailed,
			Timestamp: ts,
			Payload: map[string]string{
				"batch_id": "b1", "product_id": "123", "entry_id": "e1", "email": "a@example.com",
				"language": "en", "state": "SEND_FAILED", "error": "550", "duration_ms": "12",
			},
		})
		store.AssertExpectations(t)
	})

	t.Run("batch completed", func(t *testing.T) {
		store := new(storagemocks.MockDeliveryStore)
		svc := service.NewDeliveryService(store, nil)

		store.On("LogBatch", mock.Anything, storage.BatchSummary{
			BatchID: "b1", Total: 2, Sent: 2, Deleted: 1, DeleteFailed: 1, DurationMS: 300, CreatedAt: ts,
		}).Return(nil).Once()

		svc.Listen(eventbus.Event{
			Type:      eventbus.EventBatchCompleted,
			Timestamp: ts,
			Payload: map[string]string{
				"batch_id": "b1", "total": "2", "sent": "2", "deleted": "1",
				"send_failed": "0", "delete_failed": "1", "render_failed": "0", "duration_ms": "300",
			},
		})
		store.AssertExpectations(t)
	})

	t.Run("store error is swallowed", func(t *testing.T) {
		store := new(storagemocks.MockDeliveryStore)
		svc := service.NewDeliveryService(store, nil)
		store.On("LogDelivery", mock.Anything, mock.Anything).Return(errors.New("locked"))

		assert.NotPanics(t, func() {
			svc.Listen(eventbus.Event{Type: eventbus.EventDeliverySent, Payload: map[string]string{"state": "DELETED"}})
		})
	})

	t.Run("unrelated event ignored", func(t *testing.T) {
		store := new(storagemocks.MockDeliveryStore)
		svc := service.NewDeliveryService(store, nil)

		svc.Listen(eventbus.Event{Type: "something.else"})
		store.AssertNotCalled(t, "LogDelivery", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "LogBatch", mock.Anything, mock.Anything)
	})
}
