package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockJanitor struct {
	mock.Mock
}

func (m *MockJanitor) DeleteUnreferenced(ctx context.Context, paths []string) int {
	args := m.Called(ctx, paths)
	return args.Int(0)
}

func (m *MockJanitor) Sweep(ctx context.Context, referenced []string) (int, error) {
	args := m.Called(ctx, referenced)
	return args.Int(0), args.Error(1)
}
