// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package auth

import (
	"encoding/json"
	"strconv"

	"github.com/samber/oops"
)

// Role is an authorization level attached to a user. Roles form a
// closed, totally ordered set; higher values carry more authority.
// At rest and on the wire a role is a small unsigned integer.
type Role uint8

// RoleRoot is the most powerful role, and currently the only one.
const RoleRoot Role = 10

// ParseRole converts a stored integer into a Role. Unrecognized values
// fail with an explicit error and are never silently coerced.
func ParseRole(v uint8) (Role, error) {
	switch Role(v) {
	case RoleRoot:
		return RoleRoot, nil
	default:
		return 0, oops.Code("AUTH_UNKNOWN_ROLE").
			With("value", v).
			Errorf("unknown role %d", v)
	}
}

// String returns the role's name.
func (r Role) String() string {
	switch r {
	case RoleRoot:
		return "Root"
	default:
		return "Role(" + strconv.Itoa(int(r)) + ")"
	}
}

// AtLeast reports whether r carries at least the authority of other.
func (r Role) AtLeast(other Role) bool {
	return r >= other
}

// MarshalJSON encodes the role as its integer value.
func (r Role) MarshalJSON() ([]byte, error) {
	if _, err := ParseRole(uint8(r)); err != nil {
		return nil, err
	}
	return json.Marshal(uint8(r))
}

// UnmarshalJSON decodes an integer and rejects unknown roles.
func (r *Role) UnmarshalJSON(data []byte) error {
	var v uint8
	if err := json.Unmarshal(data, &v); err != nil {
		return oops.Code("AUTH_UNKNOWN_ROLE").Wrap(err)
	}
	role, err := ParseRole(v)
	if err != nil {
		return err
	}
	*r = role
	return nil
}
