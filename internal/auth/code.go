// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/samber/oops"
)

// Numeric access codes are uniform over [AccessCodeMin, AccessCodeMax].
const (
	AccessCodeMin    = 100000
	AccessCodeMax    = 999999
	AccessCodeDigits = 6
)

// InviteCodeLength is the number of characters in a generated invite code.
const InviteCodeLength = 12

// inviteAlphabet omits characters that are easy to misread (0/O, 1/I/L).
const inviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateAccessCode returns a uniformly random 6-digit code.
func GenerateAccessCode() (string, error) {
	return generateAccessCode(rand.Reader)
}

func generateAccessCode(src io.Reader) (string, error) {
	// rand.Int rejection-samples, so every value in the range is equally likely.
	n, err := rand.Int(src, big.NewInt(AccessCodeMax-AccessCodeMin+1))
	if err != nil {
		return "", oops.Code("ACCESS_CODE_GENERATE_FAILED").Wrap(err)
	}
	return n.Add(n, big.NewInt(AccessCodeMin)).String(), nil
}

// ValidAccessCodeFormat reports whether code is exactly six ASCII digits.
func ValidAccessCodeFormat(code string) bool {
	if len(code) != AccessCodeDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// GenerateInviteCode returns a random invite code drawn uniformly from the
// invite alphabet.
func GenerateInviteCode() (string, error) {
	return generateInviteCode(rand.Reader)
}

func generateInviteCode(src io.Reader) (string, error) {
	limit := big.NewInt(int64(len(inviteAlphabet)))
	code := make([]byte, InviteCodeLength)
	for i := range code {
		n, err := rand.Int(src, limit)
		if err != nil {
			return "", oops.Code("INVITE_CODE_GENERATE_FAILED").Wrap(err)
		}
		code[i] = inviteAlphabet[n.Int64()]
	}
	return string(code), nil
}
