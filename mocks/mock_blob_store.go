package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"fnolguard/internal/port"
)

// MockBlobStore is a mock implementation of port.BlobStore.
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Put(ctx context.Context, input port.PutInput) (*port.PutOutput, error) {
	args := m.Called(ctx, input)
	if fn, ok := args.Get(0).(func(context.Context, port.PutInput) *port.PutOutput); ok {
		return fn(ctx, input), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.PutOutput), args.Error(1)
}

func (m *MockBlobStore) Get(ctx context.Context, location string) ([]byte, error) {
	args := m.Called(ctx, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockBlobStore) PresignedURL(ctx context.Context, location string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, location, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
