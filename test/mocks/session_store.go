package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSessionStore implements contracts.SessionStore for testing
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) CurrentToken(ctx context.Context) (string, bool, error) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1), args.Error(2)
}
