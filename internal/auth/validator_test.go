// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/greatwyrm/greatwyrm/internal/auth"
)

// fixedNow is the reference instant all validator tests run at.
var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, users auth.UserRepository) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(users, auth.NewArgon2idHasher(),
		auth.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return svc
}

// encodedToken builds the transport string for a token issued at the
// given offset before fixedNow.
func encodedToken(t *testing.T, id uint64, age time.Duration) string {
	t.Helper()
	raw, err := auth.EncodeToken(auth.SessionToken{
		ID:     id,
		Role:   auth.RoleRoot,
		Issued: fixedNow.Add(-age),
	})
	require.NoError(t, err)
	return raw
}

func TestCheckToken_Valid(t *testing.T) {
	ctx := context.Background()
	stored := &auth.User{ID: 7, Name: "alice", Role: auth.RoleRoot, Added: fixedNow.Add(-time.Hour)}

	users := newMockUserRepository(t)
	users.On("GetByID", mock.Anything, uint64(7)).Return(stored, nil)
	svc := newTestService(t, users)

	user, err := svc.CheckToken(ctx, encodedToken(t, 7, time.Minute))
	require.NoError(t, err)
	assert.Equal(t, stored, user)
}

func TestCheckToken_Deserialize(t *testing.T) {
	// No repository expectations: a garbled token must be rejected
	// before the store is consulted.
	users := newMockUserRepository(t)
	svc := newTestService(t, users)

	_, err := svc.CheckToken(context.Background(), "not a token")
	rej, ok := auth.AsTokenRejected(err)
	require.True(t, ok, "expected token rejection, got %v", err)
	assert.Equal(t, auth.RejectDeserialize, rej.Reason)
	assert.Equal(t, "not a token", rej.Raw)
}

func TestCheckToken_Expired(t *testing.T) {
	users := newMockUserRepository(t)
	svc := newTestService(t, users)

	_, err := svc.CheckToken(context.Background(), encodedToken(t, 7, 361*time.Minute))
	rej, ok := auth.AsTokenRejected(err)
	require.True(t, ok)
	assert.Equal(t, auth.RejectExpired, rej.Reason)
	assert.Equal(t, uint64(7), rej.UserID)
	assert.Equal(t, int64(361), rej.AgeMinutes)
	assert.Equal(t, int64(360), rej.LimitMinutes)
}

func TestCheckToken_ExpiryBoundary(t *testing.T) {
	stored := &auth.User{ID: 7, Name: "alice", Role: auth.RoleRoot}

	t.Run("359 minutes is accepted", func(t *testing.T) {
		users := newMockUserRepository(t)
		users.On("GetByID", mock.Anything, uint64(7)).Return(stored, nil)
		svc := newTestService(t, users)

		_, err := svc.CheckToken(context.Background(), encodedToken(t, 7, 359*time.Minute))
		assert.NoError(t, err)
	})

	t.Run("exactly 360 minutes is still accepted", func(t *testing.T) {
		users := newMockUserRepository(t)
		users.On("GetByID", mock.Anything, uint64(7)).Return(stored, nil)
		svc := newTestService(t, users)

		_, err := svc.CheckToken(context.Background(), encodedToken(t, 7, 360*time.Minute))
		assert.NoError(t, err)
	})

	t.Run("361 minutes is rejected", func(t *testing.T) {
		users := newMockUserRepository(t)
		svc := newTestService(t, users)

		_, err := svc.CheckToken(context.Background(), encodedToken(t, 7, 361*time.Minute))
		rej, ok := auth.AsTokenRejected(err)
		require.True(t, ok)
		assert.Equal(t, auth.RejectExpired, rej.Reason)
	})
}

func TestCheckToken_UserNotFound(t *testing.T) {
	users := newMockUserRepository(t)
	users.On("GetByID", mock.Anything, uint64(404)).
		Return(nil, fmt.Errorf("user 404: %w", auth.ErrNotFound))
	svc := newTestService(t, users)

	_, err := svc.CheckToken(context.Background(), encodedToken(t, 404, time.Minute))
	rej, ok := auth.AsTokenRejected(err)
	require.True(t, ok)
	assert.Equal(t, auth.RejectUserNotFound, rej.Reason)
	assert.Equal(t, uint64(404), rej.UserID)
}

func TestCheckToken_RoleMismatch(t *testing.T) {
	// The store's current role no longer matches the role embedded at
	// issuance.
	stored := &auth.User{ID: 7, Name: "alice", Role: auth.Role(42)}

	users := newMockUserRepository(t)
	users.On("GetByID", mock.Anything, uint64(7)).Return(stored, nil)
	svc := newTestService(t, users)

	_, err := svc.CheckToken(context.Background(), encodedToken(t, 7, time.Minute))
	rej, ok := auth.AsTokenRejected(err)
	require.True(t, ok)
	assert.Equal(t, auth.RejectRoleMismatch, rej.Reason)
	assert.Equal(t, auth.RoleRoot, rej.Got)
	assert.Equal(t, auth.Role(42), rej.Expected)
}

func TestCheckToken_StoreFailureIsNotRejection(t *testing.T) {
	users := newMockUserRepository(t)
	users.On("GetByID", mock.Anything, uint64(7)).Return(nil, errors.New("connection lost"))
	svc := newTestService(t, users)

	_, err := svc.CheckToken(context.Background(), encodedToken(t, 7, time.Minute))
	require.Error(t, err)
	_, ok := auth.AsTokenRejected(err)
	assert.False(t, ok, "a storage failure must not look like an invalid token")
}

func TestCheckToken_Precedence(t *testing.T) {
	t.Run("expiry is checked before existence", func(t *testing.T) {
		// The mock has no GetByID expectation: reaching the store for
		// an expired token would fail the test.
		users := newMockUserRepository(t)
		svc := newTestService(t, users)

		_, err := svc.CheckToken(context.Background(), encodedToken(t, 404, 500*time.Minute))
		rej, ok := auth.AsTokenRejected(err)
		require.True(t, ok)
		assert.Equal(t, auth.RejectExpired, rej.Reason)
	})

	t.Run("existence is checked before role", func(t *testing.T) {
		users := newMockUserRepository(t)
		users.On("GetByID", mock.Anything, uint64(404)).
			Return(nil, fmt.Errorf("user 404: %w", auth.ErrNotFound))
		svc := newTestService(t, users)

		_, err := svc.CheckToken(context.Background(), encodedToken(t, 404, time.Minute))
		rej, ok := auth.AsTokenRejected(err)
		require.True(t, ok)
		assert.Equal(t, auth.RejectUserNotFound, rej.Reason)
	})
}
