// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/oops"
)

// RejectReason classifies why a presented token was rejected.
type RejectReason string

// Rejection reasons, in the order the checks run.
const (
	RejectDeserialize  RejectReason = "deserialize"
	RejectExpired      RejectReason = "expired"
	RejectUserNotFound RejectReason = "user_not_found"
	RejectRoleMismatch RejectReason = "role_mismatch"
)

// TokenRejectedError means a presented token is semantically invalid:
// unparsable, expired, referencing a deleted user, or carrying a stale
// role. It is a normal, expected outcome, not an operational failure;
// callers map it to an unauthorized response. Any other error from
// CheckToken means the validation itself could not complete.
type TokenRejectedError struct {
	Reason RejectReason

	// Raw is the presented string, set for RejectDeserialize.
	Raw string

	// UserID is the id the token claimed, set for all reasons except
	// RejectDeserialize.
	UserID uint64

	// AgeMinutes and LimitMinutes are set for RejectExpired.
	AgeMinutes   int64
	LimitMinutes int64

	// Got and Expected are set for RejectRoleMismatch: the role
	// embedded in the token versus the store's current role.
	Got      Role
	Expected Role

	cause error
}

// Error implements the error interface.
func (e *TokenRejectedError) Error() string {
	switch e.Reason {
	case RejectDeserialize:
		return fmt.Sprintf("cannot deserialize %q as a login token", e.Raw)
	case RejectExpired:
		return fmt.Sprintf("user %d presented an expired token of %d minutes old (limit is %d minutes)", e.UserID, e.AgeMinutes, e.LimitMinutes)
	case RejectUserNotFound:
		return fmt.Sprintf("user %d in token not found", e.UserID)
	case RejectRoleMismatch:
		return fmt.Sprintf("user %d role in token does not match role in store (got %s, expected %s)", e.UserID, e.Got, e.Expected)
	default:
		return "token rejected"
	}
}

// Unwrap returns the underlying cause, if any.
func (e *TokenRejectedError) Unwrap() error { return e.cause }

// AsTokenRejected extracts a *TokenRejectedError from err's chain.
func AsTokenRejected(err error) (*TokenRejectedError, bool) {
	var rej *TokenRejectedError
	ok := errors.As(err, &rej)
	return rej, ok
}

// CheckToken validates a presented transport string and returns the
// authoritative user record it stands for.
//
// The checks run in a pinned order: decode, then freshness, then
// existence, then role consistency. An expired token for a deleted
// user is therefore reported as expired, not as user-not-found. On a
// semantically invalid token the returned error is a
// *TokenRejectedError; a storage failure during the existence check is
// returned as-is, signalling that validation could not complete.
func (s *Service) CheckToken(ctx context.Context, raw string) (*User, error) {
	token, err := DecodeToken(raw)
	if err != nil {
		return nil, &TokenRejectedError{Reason: RejectDeserialize, Raw: raw, cause: err}
	}

	s.logger.DebugContext(ctx, "presented login token", "user_id", token.ID, "role", token.Role.String())

	now := s.now()
	if token.ExpiredAt(now) {
		return nil, &TokenRejectedError{
			Reason:       RejectExpired,
			UserID:       token.ID,
			AgeMinutes:   token.AgeMinutes(now),
			LimitMinutes: TokenValidMinutes,
		}
	}

	user, err := s.users.GetByID(ctx, token.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &TokenRejectedError{Reason: RejectUserNotFound, UserID: token.ID, cause: err}
		}
		return nil, oops.Code("TOKEN_CHECK_FAILED").
			With("operation", "get user by id").
			With("user_id", token.ID).
			Wrap(err)
	}

	if user.Role != token.Role {
		return nil, &TokenRejectedError{
			Reason:   RejectRoleMismatch,
			UserID:   user.ID,
			Got:      token.Role,
			Expected: user.Role,
		}
	}

	return user, nil
}

// clock returns the current time; replaceable in tests.
type clock func() time.Time
