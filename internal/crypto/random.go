// Package crypto provides cryptographic utilities.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
)

// RandomBytes generates n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// RandomString generates a random string of the specified byte length.
// The returned string is URL-safe base64 encoded.
func RandomString(byteLength int) (string, error) {
	b, err := RandomBytes(byteLength)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RandomHex generates a random hex string of the specified byte length.
// The returned string will be 2*byteLength characters.
func RandomHex(byteLength int) (string, error) {
	b, err := RandomBytes(byteLength)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SessionToken generates an opaque session token with 32 bytes of entropy.
// The raw token goes to the client; only its hash is ever stored.
func SessionToken() (string, error) {
	return RandomString(32)
}

// SessionID generates a random identifier for a session record.
// Returns a 32-character hex string (16 bytes of entropy).
func SessionID() (string, error) {
	return RandomHex(16)
}

// UserID generates a random identifier for a user record.
func UserID() (string, error) {
	return RandomHex(16)
}

// StateNonce generates a random nonce for the OAuth state parameter.
func StateNonce() (string, error) {
	return RandomHex(16)
}
