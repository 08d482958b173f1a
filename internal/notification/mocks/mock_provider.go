package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/restock-notifier/internal/notification"
)

// MockProvider is a mock implementation of notification.Provider.
type MockProvider struct {
	mock.Mock
}

//nolint:revive
func (m *MockProvider) Name() string {
	return "mock"
}

//nolint:revive
func (m *MockProvider) Send(ctx context.Context, msg notification.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
