package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fnolguard/internal/domain"
	"fnolguard/internal/port"
)

// MockModelInvoker is a mock implementation of port.ModelInvoker.
type MockModelInvoker struct {
	mock.Mock
}

func (m *MockModelInvoker) Invoke(ctx context.Context, input port.InvokeInput) (*domain.ModelReply, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelReply), args.Error(1)
}

// MockModelResolver is a mock implementation of port.ModelResolver.
type MockModelResolver struct {
	mock.Mock
}

func (m *MockModelResolver) Resolve(identity string) (port.ModelInvoker, error) {
	args := m.Called(identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(port.ModelInvoker), args.Error(1)
}
