package internal

import (
	"crypto/rand"
	"encoding/base64"
)

// SessionKeySize is the number of random bytes behind every session key.
const SessionKeySize = 32

// NewSessionKey returns a fresh 256-bit random key, base64 (standard alphabet) encoded.
func NewSessionKey() (string, error) {
	var raw [SessionKeySize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw[:]), nil
}
