package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// runStoreConformance checks the behavior every backend shares.
func runStoreConformance(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("GetAbsent", func(t *testing.T) {
		store := newStore(t)
		_, ok, err := store.Get(context.Background(), "nobody")
		if err != nil {
			t.Fatalf("get absent: %v", err)
		}
		if ok {
			t.Fatal("expected absent record")
		}
	})

	t.Run("SetThenGet", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		want := testRecord("alice", "key-a", time.Hour)

		if err := store.Set(ctx, want); err != nil {
			t.Fatalf("set: %v", err)
		}
		got, ok, err := store.Get(ctx, "alice")
		if err != nil || !ok {
			t.Fatalf("get: ok=%v err=%v", ok, err)
		}
		if got.OwnerID != "alice" || got.Key != want.Key {
			t.Fatalf("unexpected record %+v", got)
		}
		if got.ExpiresAt.UnixMilli() != want.ExpiresAt.UnixMilli() {
			t.Fatalf("expiry mismatch: got %v want %v", got.ExpiresAt, want.ExpiresAt)
		}
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		if err := store.Set(ctx, testRecord("alice", "first", time.Hour)); err != nil {
			t.Fatalf("set first: %v", err)
		}
		if err := store.Set(ctx, testRecord("alice", "second", time.Hour)); err != nil {
			t.Fatalf("set second: %v", err)
		}
		got, _, err := store.Get(ctx, "alice")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Key != "second" {
			t.Fatalf("expected overwrite, got key %q", got.Key)
		}
	})

	t.Run("RemoveIdempotent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		if err := store.Set(ctx, testRecord("alice", "key-a", time.Hour)); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := store.Remove(ctx, "alice"); err != nil {
			t.Fatalf("first remove: %v", err)
		}
		if err := store.Remove(ctx, "alice"); err != nil {
			t.Fatalf("second remove: %v", err)
		}
		if _, ok, _ := store.Get(ctx, "alice"); ok {
			t.Fatal("record still present after remove")
		}
	})

	t.Run("ListOwners", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		for _, owner := range []string{"alice", "bob", "carol"} {
			if err := store.Set(ctx, testRecord(owner, "k-"+owner, time.Hour)); err != nil {
				t.Fatalf("set %s: %v", owner, err)
			}
		}
		owners, err := store.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		sort.Strings(owners)
		if len(owners) != 3 || owners[0] != "alice" || owners[1] != "bob" || owners[2] != "carol" {
			t.Fatalf("unexpected owners %v", owners)
		}
	})

	t.Run("CompareAndSwap", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		if err := store.Set(ctx, testRecord("alice", "old", time.Hour)); err != nil {
			t.Fatalf("set: %v", err)
		}

		swapped, err := store.CompareAndSwap(ctx, "alice", "wrong", testRecord("alice", "new", time.Hour))
		if err != nil {
			t.Fatalf("cas mismatch: %v", err)
		}
		if swapped {
			t.Fatal("expected CAS with wrong key to fail")
		}

		swapped, err = store.CompareAndSwap(ctx, "alice", "old", testRecord("alice", "new", 2*time.Hour))
		if err != nil {
			t.Fatalf("cas: %v", err)
		}
		if !swapped {
			t.Fatal("expected CAS with current key to succeed")
		}
		got, _, _ := store.Get(ctx, "alice")
		if got.Key != "new" {
			t.Fatalf("expected swapped key, got %q", got.Key)
		}

		swapped, err = store.CompareAndSwap(ctx, "nobody", "old", testRecord("nobody", "new", time.Hour))
		if err != nil {
			t.Fatalf("cas absent: %v", err)
		}
		if swapped {
			t.Fatal("expected CAS on absent record to fail")
		}
	})

	t.Run("CompareAndSwapSingleWinner", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		if err := store.Set(ctx, testRecord("alice", "old", time.Hour)); err != nil {
			t.Fatalf("set: %v", err)
		}

		var (
			wins int32
			wg   sync.WaitGroup
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				next := testRecord("alice", "new-"+string(rune('a'+i)), time.Hour)
				ok, err := store.CompareAndSwap(ctx, "alice", "old", next)
				if err != nil {
					t.Errorf("cas %d: %v", i, err)
					return
				}
				if ok {
					atomic.AddInt32(&wins, 1)
				}
			}(i)
		}
		wg.Wait()

		if wins != 1 {
			t.Fatalf("expected exactly one CAS winner, got %d", wins)
		}
	})

	t.Run("EmptyOwnerRejected", func(t *testing.T) {
		store := newStore(t)
		err := store.Set(context.Background(), testRecord("", "k", time.Hour))
		if !errors.Is(err, ErrInvalidOwner) {
			t.Fatalf("expected ErrInvalidOwner, got %v", err)
		}
	})
}

func testRecord(owner, key string, ttl time.Duration) Record {
	return Record{
		OwnerID:   owner,
		Key:       key,
		ExpiresAt: time.Now().Add(ttl).Truncate(time.Millisecond),
	}
}
