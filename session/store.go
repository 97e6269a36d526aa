package session

import (
	"context"
	"errors"
	"sync"
)

// ErrStoreUnavailable wraps every backend I/O failure. Callers must treat it as a hard
// failure: the session state could not be confirmed either way.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrCorruptRecord is returned by [DecodeRecord] for records that cannot be parsed.
// Store.Get never returns it; corrupt records read as absent.
var ErrCorruptRecord = errors.New("corrupt session record")

// ErrNotFound may be returned by host callbacks to signal an absent record.
var ErrNotFound = errors.New("session record not found")

// ErrInvalidOwner is returned for owner ids a backend cannot address.
var ErrInvalidOwner = errors.New("invalid session owner")

// ErrListUnsupported is returned by List when the backend cannot enumerate owners.
var ErrListUnsupported = errors.New("session store cannot list owners")

// Store is the capability set every session backend implements.
//
// All implementations share the same semantics: Set overwrites unconditionally,
// Remove on an absent record is a no-op, corrupt records read as absent, and absence
// is reported as ok=false with a nil error.
type Store interface {
	Get(ctx context.Context, ownerID string) (Record, bool, error)
	Set(ctx context.Context, rec Record) error
	Remove(ctx context.Context, ownerID string) error
	List(ctx context.Context) ([]string, error)

	// CompareAndSwap replaces the record for ownerID with next only if the stored key
	// still equals expectedKey. It reports false without error when the record is
	// absent or holds a different key.
	CompareAndSwap(ctx context.Context, ownerID, expectedKey string, next Record) (bool, error)
}

// ownerLocks hands out one mutex per owner id for backends without a native
// conditional write. Entries are reference counted and dropped when unused.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func (l *ownerLocks) lock(ownerID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*ownerLock)
	}
	entry, ok := l.locks[ownerID]
	if !ok {
		entry = &ownerLock{}
		l.locks[ownerID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, ownerID)
		}
		l.mu.Unlock()
	}
}
