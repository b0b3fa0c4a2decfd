package twofactor_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/twofactor/pkg/twofactor"
)

// MockStorage is a mock implementation of twofactor.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetSecret(ctx context.Context, userID string) (*twofactor.Secret, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*twofactor.Secret), args.Error(1)
}

func (m *MockStorage) CreateSecret(ctx context.Context, secret *twofactor.Secret) error {
	args := m.Called(ctx, secret)
	return args.Error(0)
}

func (m *MockStorage) UpdateSecret(ctx context.Context, secret *twofactor.Secret) error {
	args := m.Called(ctx, secret)
	return args.Error(0)
}

func (m *MockStorage) DeleteSecret(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockLocker is a mock implementation of twofactor.Locker.
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Lock(ctx context.Context, key string) (func(), error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}
