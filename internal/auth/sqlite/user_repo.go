// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

// Package sqlite implements auth.UserRepository on a single-file
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"gopkg.in/yaml.v3"

	// Register the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/greatwyrm/greatwyrm/internal/auth"
)

// ErrCredentials marks bootstrap failures caused by the root
// credentials file (missing, unreadable, malformed) rather than by the
// storage engine. Callers can treat these as configuration errors.
var ErrCredentials = errors.New("root credentials")

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id       INTEGER PRIMARY KEY,
	name     TEXT    NOT NULL UNIQUE,
	password TEXT    NOT NULL,
	role     INTEGER NOT NULL,
	added    TEXT    NOT NULL
)`

// UserRepository implements auth.UserRepository using SQLite. The
// underlying *sql.DB pool makes it safe for concurrently scheduled
// request handlers.
type UserRepository struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path. Another process
// holding the file briefly locked at startup is retried with bounded
// backoff before giving up.
func Open(ctx context.Context, path string) (*UserRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, oops.Code("STORE_OPEN_FAILED").
			With("path", path).
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(4, retry.NewFibonacci(100*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := db.PingContext(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		_ = db.Close() //nolint:errcheck // open error takes precedence
		return nil, oops.Code("STORE_OPEN_FAILED").
			With("path", path).
			With("operation", "ping").
			Wrap(err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close() //nolint:errcheck // open error takes precedence
		return nil, oops.Code("STORE_OPEN_FAILED").
			With("path", path).
			With("operation", "set WAL").
			Wrap(err)
	}

	return &UserRepository{db: db}, nil
}

// Close closes the database.
func (r *UserRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return oops.Code("STORE_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// rootCredentials is the on-disk shape of the bootstrap file:
//
//	root:
//	  creds:
//	    name: <root user name>
//	    pass: <root plaintext password>
type rootCredentials struct {
	Root struct {
		Creds struct {
			Name string `yaml:"name"`
			Pass string `yaml:"pass"`
		} `yaml:"creds"`
	} `yaml:"root"`
}

// readRootCredentials loads and validates the bootstrap file.
func readRootCredentials(path string) (name, pass string, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", oops.Code("BOOTSTRAP_CREDENTIALS").
			With("path", path).
			Wrap(errors.Join(ErrCredentials, err))
	}

	var creds rootCredentials
	if err := yaml.Unmarshal(raw, &creds); err != nil {
		return "", "", oops.Code("BOOTSTRAP_CREDENTIALS").
			With("path", path).
			Wrap(errors.Join(ErrCredentials, err))
	}

	name = creds.Root.Creds.Name
	pass = creds.Root.Creds.Pass
	if name == "" || pass == "" {
		return "", "", oops.Code("BOOTSTRAP_CREDENTIALS").
			With("path", path).
			Wrap(errors.Join(ErrCredentials, errors.New("name and pass must both be set")))
	}
	return name, pass, nil
}

// BootstrapRoot initializes a fresh store: it creates the schema and
// inserts the root account (id 0, role Root) with credentials read
// from the file at credsPath, all inside one transaction. Any failure
// rolls the whole transaction back so a crash mid-init can never leave
// a half-initialized store. When the store already holds users the
// call is a no-op and the credentials file is not read.
func (r *UserRepository) BootstrapRoot(ctx context.Context, credsPath string, hasher auth.Hasher) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "create schema").
			Wrap(err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "count users").
			Wrap(err)
	}
	if count > 0 {
		// Already bootstrapped; commit keeps a freshly created-if-absent
		// schema without touching existing rows.
		if err := tx.Commit(); err != nil {
			return oops.Code("BOOTSTRAP_FAILED").
				With("operation", "commit").
				Wrap(err)
		}
		return nil
	}

	name, pass, err := readRootCredentials(credsPath)
	if err != nil {
		return err
	}

	hash, err := hasher.Hash(pass)
	if err != nil {
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "hash root password").
			Wrap(err)
	}

	added := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = tx.ExecContext(ctx,
		"INSERT INTO users (id, name, password, role, added) VALUES (?, ?, ?, ?, ?)",
		auth.RootUserID, name, hash, uint8(auth.RoleRoot), added,
	)
	if err != nil {
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "insert root user").
			With("name", name).
			Wrap(err)
	}

	if err := tx.Commit(); err != nil {
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "commit").
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*auth.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, password, role, added FROM users WHERE id = ?", id)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("id", id).
			Wrap(err)
	}
	return user, nil
}

// GetByName retrieves a user by display name.
func (r *UserRepository) GetByName(ctx context.Context, name string) (*auth.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, password, role, added FROM users WHERE name = ?", name)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("name", name).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_NAME_FAILED").
			With("name", name).
			Wrap(err)
	}
	return user, nil
}

// scanUser maps a row onto auth.User. A role or timestamp this
// subsystem could not have written is reported as corruption.
func scanUser(row *sql.Row) (*auth.User, error) {
	var (
		u       auth.User
		roleRaw uint8
		addedRaw string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.PasswordHash, &roleRaw, &addedRaw); err != nil {
		return nil, err
	}

	role, err := auth.ParseRole(roleRaw)
	if err != nil {
		return nil, oops.Code("STORE_CORRUPT_ROW").
			With("column", "role").
			With("user_id", u.ID).
			Wrap(err)
	}
	u.Role = role

	added, err := time.Parse(time.RFC3339Nano, addedRaw)
	if err != nil {
		return nil, oops.Code("STORE_CORRUPT_ROW").
			With("column", "added").
			With("user_id", u.ID).
			Wrap(err)
	}
	u.Added = added.UTC()

	return &u, nil
}
