// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package auth

import (
	"context"
	"time"
)

// RootUserID is the reserved id of the bootstrapped root account.
const RootUserID uint64 = 0

// User is a stored user account. The password hash is the opaque PHC
// string produced by a Hasher; the plaintext is never stored. Records
// are owned by the user store and only change through store
// operations.
type User struct {
	ID           uint64
	Name         string
	PasswordHash string
	Role         Role
	Added        time.Time
}

// UserRepository provides point lookups into the user store.
//
// Implementations return an error wrapping ErrNotFound when no such
// user exists; any other error is a storage failure. All methods are
// safe for concurrent use.
type UserRepository interface {
	// GetByID retrieves a user by id.
	GetByID(ctx context.Context, id uint64) (*User, error)

	// GetByName retrieves a user by display name.
	GetByName(ctx context.Context, name string) (*User, error)
}
