// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. Changing any of these invalidates stored hashes.
const (
	pbkdf2Iterations = 100_000
	pbkdf2SaltLen    = 32 // salt length in bytes
	pbkdf2KeyLen     = 32 // derived key length in bytes
	hashDelimiter    = ":"
)

// Password policy.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash derives a salted hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether the password matches the stored hash.
	// Malformed hashes yield false, never an error.
	Verify(password, stored string) bool
}

// PBKDF2Hasher implements PasswordHasher using PBKDF2-HMAC-SHA256.
// Hashes are encoded as hex(salt) ":" hex(key).
type PBKDF2Hasher struct{}

// NewPBKDF2Hasher creates a new PBKDF2Hasher.
func NewPBKDF2Hasher() *PBKDF2Hasher {
	return &PBKDF2Hasher{}
}

// Hash derives a key from the password with a fresh random salt.
func (h *PBKDF2Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code(CodeHashingFailed).
			With("operation", "generate salt").
			Wrap(err)
	}

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)

	return hex.EncodeToString(salt) + hashDelimiter + hex.EncodeToString(key), nil
}

// Verify re-derives the key with the stored salt and compares in constant time.
func (h *PBKDF2Hasher) Verify(password, stored string) bool {
	saltHex, keyHex, ok := strings.Cut(stored, hashDelimiter)
	if !ok {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) != pbkdf2SaltLen {
		return false
	}
	expected, err := hex.DecodeString(keyHex)
	if err != nil || len(expected) != pbkdf2KeyLen {
		return false
	}

	computed := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return equalDigest(computed, expected)
}

// equalDigest compares two digests without returning early on a mismatch.
func equalDigest(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return digestDiff(a, b, nil) == 0
}

// digestDiff XOR-accumulates every byte pair. visit, when non-nil, is
// called once per byte examined.
func digestDiff(a, b []byte, visit func(i int)) byte {
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
		if visit != nil {
			visit(i)
		}
	}
	return diff
}

// ValidatePassword enforces the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code(CodeInvalidInput).
			With("field", "password").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return oops.Code(CodeInvalidInput).
			With("field", "password").
			With("max", MaxPasswordLength).
			Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	return nil
}
