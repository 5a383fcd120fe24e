package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fnolguard/internal/port"
)

// MockEscalationNotifier is a mock implementation of port.EscalationNotifier.
type MockEscalationNotifier struct {
	mock.Mock
}

func (m *MockEscalationNotifier) NotifyEscalation(ctx context.Context, e port.Escalation) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
