// Package crypto implements password hashing and group invite codes.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (server-side hashing).
const (
	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32

	saltLen = 16
)

// InviteCodeLen is the number of symbols in a group invite code.
const InviteCodeLen = 8

// no 0/O/1/I: codes are typed by hand when a QR scan fails
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewSalt returns a fresh per-user salt.
func NewSalt() ([]byte, error) {
	b := make([]byte, saltLen)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	return b, nil
}

// HashPassword derives the stored password hash.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifyPassword compares in constant time.
func VerifyPassword(password, salt, expected []byte) bool {
	return subtle.ConstantTimeCompare(HashPassword(password, salt), expected) == 1
}

// NewInviteCode returns a random invite code of InviteCodeLen symbols.
func NewInviteCode() (string, error) {
	buf := make([]byte, InviteCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("invite code: %w", err)
	}
	var sb strings.Builder
	sb.Grow(InviteCodeLen)
	for _, b := range buf {
		// 256 is a multiple of len(inviteAlphabet): unbiased
		sb.WriteByte(inviteAlphabet[int(b)%len(inviteAlphabet)])
	}
	return sb.String(), nil
}

// NormalizeInviteCode uppercases and trims user input.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
