// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

// Package auth implements the authentication core of Greatwyrm:
// credential hashing, session-token issuance and validation, and the
// login flow that composes them.
//
// # Trust boundary
//
// A session token is plain JSON carrying the user id, the role at
// issuance, and the issuance time. The token itself is NOT signed or
// encrypted by this package. Confidentiality and integrity are the
// responsibility of the transport layer (the web package seals tokens
// into an encrypted cookie). Keeping the codec plain keeps the core
// testable without any transport cryptography.
//
// Because the token is only trusted within its validity window, every
// validation re-fetches the user from the store and re-checks the role
// against the current record. A token never extends authority past
// what the store says right now.
//
// # Outcome shape
//
// Operations distinguish three terminal outcomes:
//   - success: the authoritative User record,
//   - a semantically invalid credential or token: *TokenRejectedError
//     or ErrInvalidCredentials, a normal non-alarming outcome,
//   - an operational failure: any other error, meaning the check
//     itself could not complete.
//
// Callers map the second to an unauthorized response and the third to
// a server failure.
package auth
