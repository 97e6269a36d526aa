package session

import (
	"context"
	"errors"
	"fmt"
)

// Callbacks are the host-supplied functions behind a [CallbackStore]. Data crosses the
// boundary in the record text form ("<key>:<millis>"). Get, Set and Remove are
// required; List is optional and disables sweeping when nil.
type Callbacks struct {
	Get    func(ctx context.Context, ownerID string) (string, error)
	Set    func(ctx context.Context, ownerID, data string) error
	Remove func(ctx context.Context, ownerID string) error
	List   func(ctx context.Context) ([]string, error)
}

// CallbackStore adapts host callbacks to the [Store] interface.
//
// Host errors are wrapped in [ErrStoreUnavailable]. A Get that returns [ErrNotFound]
// or empty data reports the record as absent. CompareAndSwap is a read-compare-write
// serialized per owner inside this process only; the host owns cross-process safety.
type CallbackStore struct {
	cb    Callbacks
	locks ownerLocks
}

// NewCallbackStore validates cb and returns a store delegating to it.
func NewCallbackStore(cb Callbacks) (*CallbackStore, error) {
	if cb.Get == nil || cb.Set == nil || cb.Remove == nil {
		return nil, errors.New("session: callback store requires Get, Set and Remove")
	}
	return &CallbackStore{cb: cb}, nil
}

func (s *CallbackStore) Get(ctx context.Context, ownerID string) (Record, bool, error) {
	if ownerID == "" {
		return Record{}, false, ErrInvalidOwner
	}
	data, err := s.cb.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, false, nil
		}
		return Record{}, false, wrapHostErr(err)
	}
	if data == "" {
		return Record{}, false, nil
	}
	rec, err := DecodeRecord(ownerID, data)
	if err != nil {
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *CallbackStore) Set(ctx context.Context, rec Record) error {
	if rec.OwnerID == "" {
		return ErrInvalidOwner
	}
	unlock := s.locks.lock(rec.OwnerID)
	defer unlock()
	if err := s.cb.Set(ctx, rec.OwnerID, EncodeRecord(rec)); err != nil {
		return wrapHostErr(err)
	}
	return nil
}

func (s *CallbackStore) Remove(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return ErrInvalidOwner
	}
	unlock := s.locks.lock(ownerID)
	defer unlock()
	if err := s.cb.Remove(ctx, ownerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return wrapHostErr(err)
	}
	return nil
}

func (s *CallbackStore) List(ctx context.Context) ([]string, error) {
	if s.cb.List == nil {
		return nil, ErrListUnsupported
	}
	owners, err := s.cb.List(ctx)
	if err != nil {
		return nil, wrapHostErr(err)
	}
	return owners, nil
}

func (s *CallbackStore) CompareAndSwap(ctx context.Context, ownerID, expectedKey string, next Record) (bool, error) {
	if ownerID == "" {
		return false, ErrInvalidOwner
	}
	unlock := s.locks.lock(ownerID)
	defer unlock()

	current, ok, err := s.Get(ctx, ownerID)
	if err != nil {
		return false, err
	}
	if !ok || !current.KeyMatches(expectedKey) {
		return false, nil
	}

	next.OwnerID = ownerID
	if err := s.cb.Set(ctx, ownerID, EncodeRecord(next)); err != nil {
		return false, wrapHostErr(err)
	}
	return true, nil
}

// wrapHostErr keeps the host error in the chain so callers can match cancellation,
// deadlines and their own sentinels.
func wrapHostErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
