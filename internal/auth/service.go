// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// dummyPasswordHash is used when a user doesn't exist to prevent timing
// attacks: verification still runs so response time stays consistent.
// This is NOT a real credential and will never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service composes the hasher, token codec, and user store into the
// login and session-validation operations exposed to the web layer.
// A Service is immutable after construction and safe for concurrent
// use; it holds no locks and writes no server-side session state.
type Service struct {
	users  UserRepository
	hasher Hasher
	logger *slog.Logger
	now    clock
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for diagnostic traces.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(users UserRepository, hasher Hasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}

	s := &Service{
		users:  users,
		hasher: hasher,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Errorf("logger cannot be nil")
	}
	return s, nil
}

// LoginResult is the successful outcome of Login.
type LoginResult struct {
	// User is the authenticated user record.
	User *User

	// Token is the freshly issued transport token. Empty when
	// AlreadyValid is set.
	Token string

	// AlreadyValid is set when the caller presented a token that is
	// still valid, in which case no password was checked and no new
	// token was issued.
	AlreadyValid bool
}

// Login authenticates a user by name and password and issues a session
// token.
//
// If presented is a token the validator still accepts, Login
// short-circuits with AlreadyValid without touching the password:
// logging in is idempotent. An unknown name and a wrong password both
// collapse into ErrInvalidCredentials, with a dummy hash verification
// keeping the timing consistent. Nothing is persisted on success; the
// token alone represents the session.
func (s *Service) Login(ctx context.Context, name, password, presented string) (*LoginResult, error) {
	if presented != "" {
		user, err := s.CheckToken(ctx, presented)
		if err == nil {
			s.logger.DebugContext(ctx, "presented token still valid, skipping password check",
				"user_id", user.ID, "name", user.Name)
			return &LoginResult{User: user, AlreadyValid: true}, nil
		}
		if rej, ok := AsTokenRejected(err); ok {
			s.logger.DebugContext(ctx, "presented token invalid, proceeding with password login",
				"reason", string(rej.Reason))
		} else {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "check presented token").
				Wrap(err)
		}
	}

	user, lookupErr := s.users.GetByName(ctx, name)

	targetHash := dummyPasswordHash
	userExists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
		// Keep verifying against the dummy hash below.
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by name").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, ErrInvalidCredentials
		}
		// A stored hash this subsystem produced failed to parse:
		// external corruption, surfaced as a hard failure.
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID).
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return nil, ErrInvalidCredentials
	}

	token, err := EncodeToken(NewSessionToken(user.ID, user.Role))
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "encode session token").
			With("user_id", user.ID).
			Wrap(err)
	}

	s.logger.DebugContext(ctx, "login succeeded", "user_id", user.ID, "name", user.Name)
	return &LoginResult{User: user, Token: token}, nil
}
