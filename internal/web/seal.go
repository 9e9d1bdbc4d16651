// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package web

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"

	"github.com/samber/oops"
)

// Sealer is the transport-confidentiality wrapper around session
// tokens. The token itself is plain JSON and unsigned; the cookie
// value is the token sealed with AES-256-GCM under the server's cookie
// key. Only this outer layer provides integrity and confidentiality,
// which keeps the inner codec free of transport cryptography.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a Sealer from a 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != 32 {
		return nil, oops.Code("SEAL_BAD_KEY").
			With("bytes", len(key)).
			Errorf("sealer key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, oops.Code("SEAL_BAD_KEY").Wrap(err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, oops.Code("SEAL_BAD_KEY").Wrap(err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts a token for transport. The output is URL-safe base64
// of nonce||ciphertext.
func (s *Sealer) Seal(token string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", oops.Code("SEAL_FAILED").Wrap(err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(token), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed cookie value back into the token string. Any
// failure means the value was not produced under this key (tampered,
// truncated, or foreign) and is treated by callers as an invalid
// credential, not a server failure.
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", oops.Code("SEAL_OPEN_FAILED").Wrap(err)
	}
	if len(raw) < s.aead.NonceSize() {
		return "", oops.Code("SEAL_OPEN_FAILED").Errorf("sealed value too short")
	}
	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	token, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", oops.Code("SEAL_OPEN_FAILED").Wrap(err)
	}
	return string(token), nil
}
