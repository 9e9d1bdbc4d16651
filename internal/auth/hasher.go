// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// Hasher provides password hashing and verification.
type Hasher interface {
	// Hash produces a salted, self-describing hash of the password.
	Hash(password string) (string, error)

	// Verify checks the password against a stored hash. Returns
	// (true, nil) on match and (false, nil) on mismatch. A hash that
	// cannot be parsed is an error, not a mismatch: stored hashes are
	// produced only by Hash, so a malformed one means corrupted data.
	Verify(password, hash string) (bool, error)
}

// Argon2idHasher implements Hasher using argon2id in PHC string format.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces an argon2id hash of the password with a fresh random
// salt. The output encodes the algorithm parameters and salt, e.g.
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<digest>.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	digest := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)

	return encoded, nil
}

// argon2Params is the parameter set parsed back out of a PHC string.
type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint32
	salt    []byte
	digest  []byte
}

// parseHash splits a PHC-format argon2id string into its parameters.
func parseHash(encoded string) (*argon2Params, error) {
	malformed := oops.Code("AUTH_MALFORMED_HASH")

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, malformed.Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, malformed.Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, malformed.Wrap(err)
	}

	p := &argon2Params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, malformed.Wrap(err)
	}
	if p.threads > 255 {
		return nil, malformed.Errorf("threads value %d exceeds uint8 max", p.threads)
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, malformed.Wrap(err)
	}
	if p.digest, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, malformed.Wrap(err)
	}
	if len(p.digest) == 0 || len(p.digest) > 1<<30 {
		return nil, malformed.Errorf("invalid digest length: %d", len(p.digest))
	}

	return p, nil
}

// Verify recomputes the hash of password under the parameters and salt
// embedded in encodedHash and compares digests in constant time.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	p, err := parseHash(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, uint8(p.threads), uint32(len(p.digest)))

	return subtle.ConstantTimeCompare(computed, p.digest) == 1, nil
}
