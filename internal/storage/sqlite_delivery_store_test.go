package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/restock-notifier/internal/storage"
)

func newStore(t *testing.T) *storage.SQLiteDeliveryStore {
	t.Helper()
	db, _, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewSQLiteDeliveryStore(db)
}

func TestSQLiteDeliveryStore(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("log and list", func(t *testing.T) {
		entry := storage.DeliveryLogEntry{
			BatchID:    "b1",
			ProductID:  "123",
			EntryID:    "e1",
			Email:      "a@example.com",
			Language:   "en",
			State:      "DELETED",
			DurationMS: 42,
			CreatedAt:  now.Add(-time.Minute),
		}
		require.NoError(t, store.LogDelivery(ctx, entry))

		list, err := store.ListDeliveries(ctx, storage.DeliveryFilter{Limit: 10})
		require.NoError(t, err)
		require.Len(t, list, 1)

		got := list[0]
		assert.NotZero(t, got.ID)
		assert.Equal(t, entry.BatchID, got.BatchID)
		assert.Equal(t, entry.ProductID, got.ProductID)
		assert.Equal(t, entry.EntryID, got.EntryID)
		assert.Equal(t, entry.Email, got.Email)
		assert.Equal(t, entry.Language, got.Language)
		assert.Equal(t, entry.State, got.State)
		assert.Equal(t, int64(42), got.DurationMS)
		assert.True(t, entry.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("failed state newest first", func(t *testing.T) {
		require.NoError(t, store.LogDelivery(ctx, storage.DeliveryLogEntry{
			BatchID:   "b1",
			ProductID: "456",
			EntryID:   "e2",
			Email:     "b@example.com",
			State:     "SEND_FAILED",
			ErrorMsg:  "connection refused",
			CreatedAt: now,
		}))

		list, err := store.ListDeliveries(ctx, storage.DeliveryFilter{})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "SEND_FAILED", list[0].State)
		assert.Equal(t, "connection refused", list[0].ErrorMsg)
	})

	t.Run("filters", func(t *testing.T) {
		list, err := store.ListDeliveries(ctx, storage.DeliveryFilter{ProductID: "123"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "e1", list[0].EntryID)

		list, err = store.ListDeliveries(ctx, storage.DeliveryFilter{State: "SEND_FAILED"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "e2", list[0].EntryID)

		list, err = store.ListDeliveries(ctx, storage.DeliveryFilter{ProductID: "123", State: "SEND_FAILED"})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("limit", func(t *testing.T) {
		list, err := store.ListDeliveries(ctx, storage.DeliveryFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("zero created_at defaults to now", func(t *testing.T) {
		require.NoError(t, store.LogDelivery(ctx, storage.DeliveryLogEntry{BatchID: "b2", Email: "c@example.com", State: "DELETED"}))
		list, err := store.ListDeliveries(ctx, storage.DeliveryFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "b2", list[0].BatchID)
		assert.WithinDuration(t, time.Now(), list[0].CreatedAt, time.Minute)
	})
}

func TestSQLiteDeliveryStore_Batches(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	b := storage.BatchSummary{BatchID: "b1", Total: 3, Sent: 2, Deleted: 1, SendFailed: 1, DeleteFailed: 1, DurationMS: 900}
	require.NoError(t, store.LogBatch(ctx, b))

	b.Deleted = 2
	b.DeleteFailed = 0
	require.NoError(t, store.LogBatch(ctx, b))

	list, err := store.ListBatches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b1", list[0].BatchID)
	assert.Equal(t, 3, list[0].Total)
	assert.Equal(t, 2, list[0].Deleted)
	assert.Equal(t, 0, list[0].DeleteFailed)
	assert.Equal(t, int64(900), list[0].DurationMS)
}

func TestSQLiteDeliveryStore_PruneBefore(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.LogDelivery(ctx, storage.DeliveryLogEntry{BatchID: "old", Email: "a@example.com", State: "DELETED", CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.LogDelivery(ctx, storage.DeliveryLogEntry{BatchID: "new", Email: "b@example.com", State: "DELETED", CreatedAt: now}))
	require.NoError(t, store.LogBatch(ctx, storage.BatchSummary{BatchID: "old", CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.LogBatch(ctx, storage.BatchSummary{BatchID: "new", CreatedAt: now}))

	n, err := store.PruneBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := store.ListDeliveries(ctx, storage.DeliveryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].BatchID)

	batches, err := store.ListBatches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "new", batches[0].BatchID)

	n, err = store.PruneBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}
