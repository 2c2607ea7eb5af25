// Package password implements the PBKDF2-HMAC-SHA256 scheme used for stored
// credentials: a random 16-byte salt, 100000 iterations, and the salt and
// derived key concatenated into one base64 string.
package password

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength = 16
	iterations = 100000
	keyLength  = 32
)

// Hash derives a key from the plaintext password with a fresh random salt
// and returns base64(salt + key).
func Hash(plaintext string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("error generating salt: %v", err)
	}

	dk := pbkdf2.Key([]byte(plaintext), salt, iterations, keyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(append(salt, dk...)), nil
}

// Verify reports whether the plaintext password matches the stored hash.
// A malformed stored value verifies as false rather than erroring, so a
// corrupted row behaves like a wrong password.
func Verify(plaintext, stored string) bool {
	data, err := base64.StdEncoding.DecodeString(stored)
	if err != nil || len(data) <= saltLength {
		return false
	}

	salt := data[:saltLength]
	dk := data[saltLength:]
	candidate := pbkdf2.Key([]byte(plaintext), salt, iterations, len(dk), sha256.New)
	return hmac.Equal(candidate, dk)
}
