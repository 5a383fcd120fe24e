package mocks

import (
	"github.com/stretchr/testify/mock"

	"fnolguard/internal/domain"
)

// MockMetadataExtractor is a mock implementation of port.MetadataExtractor.
type MockMetadataExtractor struct {
	mock.Mock
}

func (m *MockMetadataExtractor) Extract(data []byte, contentType string) domain.Extraction {
	args := m.Called(data, contentType)
	return args.Get(0).(domain.Extraction)
}

func (m *MockMetadataExtractor) ResolveContentType(data []byte, declared string) string {
	args := m.Called(data, declared)
	if fn, ok := args.Get(0).(func([]byte, string) string); ok {
		return fn(data, declared)
	}
	return args.String(0)
}

// MockTextExtractor is a mock implementation of port.TextExtractor.
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) ExtractText(data []byte, contentType string, limit int) (string, error) {
	args := m.Called(data, contentType, limit)
	return args.String(0), args.Error(1)
}
