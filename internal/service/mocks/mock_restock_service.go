package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/restock-notifier/internal/dispatch"
	"github.com/shaharia-lab/restock-notifier/internal/restock"
	"github.com/shaharia-lab/restock-notifier/internal/service"
)

// MockRestockService is a mock implementation of service.RestockService.
type MockRestockService struct {
	mock.Mock
}

//nolint:revive
func (m *MockRestockService) Handle(ctx context.Context, raw []byte) service.Result {
	args := m.Called(ctx, raw)
	return args.Get(0).(service.Result)
}

//nolint:revive
func (m *MockRestockService) Notify(ctx context.Context, productID string, names restock.ProductNameSet) (dispatch.Report, error) {
	args := m.Called(ctx, productID, names)
	return args.Get(0).(dispatch.Report), args.Error(1)
}
