package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/restock-notifier/internal/dispatch"
	"github.com/shaharia-lab/restock-notifier/internal/restock"
)

// MockRegistrationStore is a mock implementation of service.RegistrationStore.
type MockRegistrationStore struct {
	mock.Mock
}

//nolint:revive
func (m *MockRegistrationStore) FetchRegistrations(ctx context.Context, productID string) ([]restock.EmailRegistration, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]restock.EmailRegistration), args.Error(1)
}

// MockDispatcher is a mock implementation of service.Dispatcher.
type MockDispatcher struct {
	mock.Mock
}

//nolint:revive
func (m *MockDispatcher) Dispatch(ctx context.Context, regs []restock.EmailRegistration, names restock.ProductNameSet) dispatch.Report {
	args := m.Called(ctx, regs, names)
	return args.Get(0).(dispatch.Report)
}

// MockWebhookObserver is a mock implementation of service.WebhookObserver.
type MockWebhookObserver struct {
	mock.Mock
}

//nolint:revive
func (m *MockWebhookObserver) ObserveWebhook(code restock.Code) {
	m.Called(code)
}
