// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greatwyrm/greatwyrm/internal/auth"
	"github.com/greatwyrm/greatwyrm/internal/auth/sqlite"
)

// writeCreds writes a root bootstrap file and returns its path.
func writeCreds(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "root-creds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

const validCreds = `
root:
  creds:
    name: admin
    pass: super-secret
`

func openRepo(t *testing.T) *sqlite.UserRepository {
	t.Helper()
	repo, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestBootstrapRoot(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewArgon2idHasher()

	t.Run("creates the root account on a fresh store", func(t *testing.T) {
		repo := openRepo(t)
		require.NoError(t, repo.BootstrapRoot(ctx, writeCreds(t, validCreds), hasher))

		user, err := repo.GetByID(ctx, auth.RootUserID)
		require.NoError(t, err)
		assert.Equal(t, auth.RootUserID, user.ID)
		assert.Equal(t, "admin", user.Name)
		assert.Equal(t, auth.RoleRoot, user.Role)
		assert.WithinDuration(t, time.Now().UTC(), user.Added, 10*time.Second)

		// The stored hash verifies against the plaintext from the file.
		ok, err := hasher.Verify("super-secret", user.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)

		// Never the plaintext itself.
		assert.NotEqual(t, "super-secret", user.PasswordHash)
	})

	t.Run("is a no-op once bootstrapped", func(t *testing.T) {
		repo := openRepo(t)
		require.NoError(t, repo.BootstrapRoot(ctx, writeCreds(t, validCreds), hasher))

		// Second run must not read the credentials file at all.
		require.NoError(t, repo.BootstrapRoot(ctx, filepath.Join(t.TempDir(), "gone.yaml"), hasher))

		user, err := repo.GetByID(ctx, auth.RootUserID)
		require.NoError(t, err)
		assert.Equal(t, "admin", user.Name)
	})

	t.Run("missing credentials file aborts cleanly", func(t *testing.T) {
		repo := openRepo(t)
		err := repo.BootstrapRoot(ctx, filepath.Join(t.TempDir(), "gone.yaml"), hasher)
		require.Error(t, err)
		assert.ErrorIs(t, err, sqlite.ErrCredentials)

		// The rollback leaves nothing behind: a retry with a valid
		// file bootstraps from scratch.
		require.NoError(t, repo.BootstrapRoot(ctx, writeCreds(t, validCreds), hasher))
		_, err = repo.GetByID(ctx, auth.RootUserID)
		assert.NoError(t, err)
	})

	t.Run("malformed credentials file", func(t *testing.T) {
		repo := openRepo(t)
		err := repo.BootstrapRoot(ctx, writeCreds(t, "root: [not, a, mapping"), hasher)
		require.Error(t, err)
		assert.ErrorIs(t, err, sqlite.ErrCredentials)
	})

	t.Run("credentials file missing fields", func(t *testing.T) {
		repo := openRepo(t)
		err := repo.BootstrapRoot(ctx, writeCreds(t, "root:\n  creds:\n    name: admin\n"), hasher)
		require.Error(t, err)
		assert.ErrorIs(t, err, sqlite.ErrCredentials)
	})
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewArgon2idHasher()

	repo := openRepo(t)
	require.NoError(t, repo.BootstrapRoot(ctx, writeCreds(t, validCreds), hasher))

	t.Run("get by id", func(t *testing.T) {
		user, err := repo.GetByID(ctx, auth.RootUserID)
		require.NoError(t, err)
		assert.Equal(t, "admin", user.Name)
	})

	t.Run("get by name", func(t *testing.T) {
		user, err := repo.GetByName(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, auth.RootUserID, user.ID)
	})

	t.Run("absent id is ErrNotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 404)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("absent name is ErrNotFound", func(t *testing.T) {
		_, err := repo.GetByName(ctx, "nobody")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("lookups are safe concurrently", func(t *testing.T) {
		done := make(chan error, 8)
		for range 8 {
			go func() {
				_, err := repo.GetByName(ctx, "admin")
				done <- err
			}()
		}
		for range 8 {
			assert.NoError(t, <-done)
		}
	})
}

func TestOpen_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.db")
	repo, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())
}
