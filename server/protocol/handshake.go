package protocol

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
)

// SaltSize is the length in bytes of a HandshakeChallenge salt.
const SaltSize = 16

// NewSalt generates a random salt for a HandshakeChallenge.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("protocol: generate salt: %w", err)
	}
	return salt, nil
}

// PasswordHash computes the salted digest a client sends in
// HandshakeResponse: sha256(password + account + salt), matching the
// spec'd "salted SHA-256 of password + account + salt" handshake.
func PasswordHash(password, account string, salt []byte) []byte {
	h := sha256.New()
	h.Write([]byte(password))
	h.Write([]byte(account))
	h.Write(salt)
	return h.Sum(nil)
}

// CheckPassword reports whether got matches the digest produced by hashing
// password/account/salt, using a constant-time comparison so a mismatching
// handshake can't be used to time-probe the configured password.
func CheckPassword(got []byte, password, account string, salt []byte) bool {
	want := PasswordHash(password, account, salt)
	return subtle.ConstantTimeCompare(got, want) == 1
}
