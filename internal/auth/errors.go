// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested user does not exist.
// Absence is a normal outcome, distinct from a storage failure.
var ErrNotFound = errors.New("not found")

// ErrInvalidCredentials is the single outcome for both an unknown user
// name and a wrong password, so a caller cannot tell which check
// failed.
var ErrInvalidCredentials = oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid name or password")
