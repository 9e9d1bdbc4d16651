// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package auth

import (
	"encoding/json"
	"time"

	"github.com/samber/oops"
)

// TokenValidMinutes is the fixed validity window of a session token.
// Age is measured in whole minutes; a token is rejected only once its
// age strictly exceeds the window, so a token aged exactly
// TokenValidMinutes is still accepted.
const TokenValidMinutes int64 = 360

// SessionToken is the client-held session value: the user id, the role
// as of issuance, and the issuance time. It is never persisted
// server-side and is discarded by the client at logout; there is no
// revocation list.
type SessionToken struct {
	ID     uint64    `json:"id"`
	Role   Role      `json:"role"`
	Issued time.Time `json:"issued"`
}

// NewSessionToken builds a token for the given user, issued now.
func NewSessionToken(id uint64, role Role) SessionToken {
	return SessionToken{ID: id, Role: role, Issued: time.Now().UTC()}
}

// AgeMinutes returns the token's age at now, truncated to whole
// minutes.
func (t SessionToken) AgeMinutes(now time.Time) int64 {
	return int64(now.Sub(t.Issued).Minutes())
}

// ExpiredAt reports whether the token would be rejected as expired at
// the given time.
func (t SessionToken) ExpiredAt(now time.Time) bool {
	return t.AgeMinutes(now) > TokenValidMinutes
}

// validate rejects values a token could never legitimately carry: an
// unknown role or a zero issuance time.
func (t SessionToken) validate() error {
	if _, err := ParseRole(uint8(t.Role)); err != nil {
		return err
	}
	if t.Issued.IsZero() {
		return oops.Code("TOKEN_MISSING_ISSUED").Errorf("token has no issuance time")
	}
	return nil
}

// EncodeToken serializes the token to its transport string. The string
// is plain JSON; sealing it is the transport layer's job. An encoding
// failure here is an internal bug, never a user-facing condition.
func EncodeToken(t SessionToken) (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", oops.Code("TOKEN_ENCODE_FAILED").
			With("user_id", t.ID).
			Wrap(err)
	}
	return string(raw), nil
}

// DecodeToken parses a transport string back into a SessionToken. Any
// malformed input yields an error carrying the raw string for
// diagnostics; attacker-controlled input can never panic here.
//
// Every field is required. Pointer fields distinguish absent from
// zero, so `{"role":10,"issued":...}` is a decode failure rather than
// a token for user 0, the reserved root id.
func DecodeToken(raw string) (SessionToken, error) {
	var wire struct {
		ID     *uint64    `json:"id"`
		Role   *Role      `json:"role"`
		Issued *time.Time `json:"issued"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return SessionToken{}, oops.Code("TOKEN_DECODE_FAILED").
			With("raw", raw).
			Wrap(err)
	}
	for field, present := range map[string]bool{
		"id":     wire.ID != nil,
		"role":   wire.Role != nil,
		"issued": wire.Issued != nil,
	} {
		if !present {
			return SessionToken{}, oops.Code("TOKEN_DECODE_FAILED").
				With("raw", raw).
				Errorf("token is missing required field %q", field)
		}
	}

	t := SessionToken{ID: *wire.ID, Role: *wire.Role, Issued: *wire.Issued}
	if err := t.validate(); err != nil {
		return SessionToken{}, oops.Code("TOKEN_DECODE_FAILED").
			With("raw", raw).
			Wrap(err)
	}
	return t, nil
}
