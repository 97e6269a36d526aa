package session

import (
	"crypto/subtle"
	"time"
)

// Record is the server-side proof that a session key is currently valid for an owner.
type Record struct {
	OwnerID   string
	Key       string
	ExpiresAt time.Time
}

// Expired reports whether now is past the record's expiry.
func (r Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// ValidAt reports whether now falls inside [ExpiresAt-maxAge, ExpiresAt].
//
// The lower bound rejects records whose window has not opened yet, which only
// happens when the stored expiry was written with a skewed clock or corrupted.
func (r Record) ValidAt(now time.Time, maxAge time.Duration) bool {
	if r.Expired(now) {
		return false
	}
	return !now.Before(r.ExpiresAt.Add(-maxAge))
}

// KeyMatches compares key against the stored key in constant time.
func (r Record) KeyMatches(key string) bool {
	if r.Key == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(r.Key), []byte(key)) == 1
}
