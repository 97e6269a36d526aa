package goSession

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSession/session"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return mr, rdb
}

// exerciseLifecycle runs sign-in, validation, expiry and sign-out against h.
func exerciseLifecycle(t *testing.T, h *harness) {
	t.Helper()

	tok := h.signIn(t, "alice")
	if u := h.userOf(t, tok); u == nil || u.ID != "alice" {
		t.Fatalf("expected alice, got %+v", u)
	}

	h.clock.At(1100 * time.Millisecond)
	if u := h.userOf(t, tok); u != nil {
		t.Fatal("expected expiry")
	}

	tok = h.signIn(t, "bob")
	if err := h.m.SignOut(context.Background(), tok, nil); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if u := h.userOf(t, tok); u != nil {
		t.Fatal("signed-out token must not resolve")
	}
}

func TestManagerWithRedisStorage(t *testing.T) {
	mr, rdb := newTestRedis(t)
	h := newHarness(t, func(cfg *Config) {
		cfg.Session.Storage = StorageRedis
		cfg.Session.RedisPrefix = "app"
	}, func(b *Builder) { b.WithRedis(rdb) })

	exerciseLifecycle(t, h)

	h.signIn(t, "alice")
	if !mr.Exists("app:alice") {
		t.Fatalf("expected app:alice key, have %v", mr.Keys())
	}
}

func TestManagerWithSQLiteStorage(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "sessions.db")
	h := newHarness(t, func(cfg *Config) {
		cfg.Session.Storage = StorageSQLite
		cfg.Session.SQLiteDSN = dsn
	})

	exerciseLifecycle(t, h)

	if _, ok := h.store.(*session.SQLiteStore); !ok {
		t.Fatalf("expected sqlite store, got %T", h.store)
	}
	if err := h.m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

type mapCallbacks struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *mapCallbacks) callbacks() session.Callbacks {
	return session.Callbacks{
		Get: func(_ context.Context, owner string) (string, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			return m.data[owner], nil
		},
		Set: func(_ context.Context, owner, data string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.data[owner] = data
			return nil
		},
		Remove: func(_ context.Context, owner string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.data, owner)
			return nil
		},
	}
}

func TestManagerWithCustomStorage(t *testing.T) {
	host := &mapCallbacks{data: map[string]string{}}
	h := newHarness(t, func(cfg *Config) {
		cfg.Session.Storage = StorageCustom
		cfg.Callbacks.Timeout = time.Second
	}, func(b *Builder) { b.WithSessionCallbacks(host.callbacks()) })

	exerciseLifecycle(t, h)

	if _, err := h.m.FreeSessions(context.Background()); !errors.Is(err, session.ErrListUnsupported) {
		t.Fatalf("callbacks without List cannot be swept, got %v", err)
	}
}

func TestCustomStorageCallbackTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	cb := (&mapCallbacks{data: map[string]string{}}).callbacks()
	cb.Get = func(context.Context, string) (string, error) {
		<-release
		return "", nil
	}
	h := newHarness(t, func(cfg *Config) {
		cfg.Session.Storage = StorageCustom
		cfg.Callbacks.Timeout = 20 * time.Millisecond
	}, func(b *Builder) { b.WithSessionCallbacks(cb) })

	tok, err := h.m.SignInUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("SignInUser: %v", err)
	}
	_, err = h.m.GetUser(context.Background(), tok)
	if !errors.Is(err, ErrCallbackTimeout) || !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected a timed-out store callback, got %v", err)
	}

	h.flushAudit(t)
	events := h.audit.byType(EventError)
	if len(events) != 1 || events[0].Error != string(auditErrCallbackTimeout) {
		t.Fatalf("expected a callback_timeout audit event, got %+v", events)
	}
}
