package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const recordSeparator = ":"

// EncodeRecord renders r in the "<key>:<millis-since-epoch>" text form.
func EncodeRecord(r Record) string {
	return r.Key + recordSeparator + strconv.FormatInt(r.ExpiresAt.UnixMilli(), 10)
}

// DecodeRecord parses the text form produced by [EncodeRecord] for ownerID.
// Every malformed input yields an error wrapping [ErrCorruptRecord].
func DecodeRecord(ownerID, data string) (Record, error) {
	parts := strings.Split(strings.TrimSpace(data), recordSeparator)
	if len(parts) != 2 {
		return Record{}, fmt.Errorf("%w: want 2 fields, got %d", ErrCorruptRecord, len(parts))
	}
	if parts[0] == "" {
		return Record{}, fmt.Errorf("%w: empty key", ErrCorruptRecord)
	}

	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	return Record{
		OwnerID:   ownerID,
		Key:       parts[0],
		ExpiresAt: time.UnixMilli(ms),
	}, nil
}
