package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/restock-notifier/internal/eventbus"
	"github.com/shaharia-lab/restock-notifier/internal/storage"
)

// MockDeliveryService is a mock implementation of service.DeliveryService.
type MockDeliveryService struct {
	mock.Mock
}

//nolint:revive
func (m *MockDeliveryService) ListDeliveries(ctx context.Context, f storage.DeliveryFilter) ([]storage.DeliveryLogEntry, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.DeliveryLogEntry), args.Error(1)
}

//nolint:revive
func (m *MockDeliveryService) ListBatches(ctx context.Context, limit int) ([]storage.BatchSummary, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.BatchSummary), args.Error(1)
}

//nolint:revive
func (m *MockDeliveryService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	args := m.Called(ctx, retention)
	return args.Get(0).(int64), args.Error(1)
}

//nolint:revive
func (m *MockDeliveryService) Listen(e eventbus.Event) {
	m.Called(e)
}
