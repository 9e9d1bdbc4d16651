// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/greatwyrm/greatwyrm/internal/auth"
)

// mockUserRepository is a testify mock of auth.UserRepository.
type mockUserRepository struct {
	mock.Mock
}

func newMockUserRepository(t *testing.T) *mockUserRepository {
	m := &mockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uint64) (*auth.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*auth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) GetByName(ctx context.Context, name string) (*auth.User, error) {
	args := m.Called(ctx, name)
	if user, ok := args.Get(0).(*auth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}
