package goSession

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
)

var testSecrets = token.Secrets{
	Key32: "0123456789abcdef0123456789abcdef",
	Key16: "0123456789abcdef",
}

// testEpoch is the fake clock's zero; scenario offsets are relative to it.
var testEpoch = time.UnixMilli(1_700_000_000_000)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: testEpoch}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// At moves the clock to testEpoch+offset.
func (c *testClock) At(offset time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = testEpoch.Add(offset)
}

type testUsers struct {
	mu    sync.Mutex
	users map[string]*User
	calls atomic.Int64
}

func newTestUsers(ids ...string) *testUsers {
	u := &testUsers{users: make(map[string]*User)}
	for _, id := range ids {
		u.users[id] = &User{ID: id}
	}
	return u
}

func (u *testUsers) put(user *User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[user.ID] = user
}

func (u *testUsers) delete(id string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.users, id)
}

func (u *testUsers) GetUserByID(_ context.Context, id string) (*User, error) {
	u.calls.Add(1)
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[id]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

type testCreds struct {
	User     string
	Password string
}

// passwordAuth accepts testCreds whose password is "pw-" + user.
var passwordAuth = AuthenticatorFunc(func(_ context.Context, credentials any) (string, error) {
	c, ok := credentials.(testCreds)
	if !ok {
		return "", errors.New("unexpected credentials type")
	}
	if c.Password != "pw-"+c.User {
		return "", nil
	}
	return c.User, nil
})

func creds(user string) testCreds {
	return testCreds{User: user, Password: "pw-" + user}
}

type captureSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *captureSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) byType(eventType string) []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AuditEvent
	for _, e := range s.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type tokenRecorder struct {
	mu     sync.Mutex
	tokens []string
}

func (r *tokenRecorder) SetToken(tok string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, tok)
}

func (r *tokenRecorder) last() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tokens) == 0 {
		return "", false
	}
	return r.tokens[len(r.tokens)-1], true
}

type harness struct {
	m     *Manager
	clock *testClock
	users *testUsers
	store session.Store
	audit *captureSink
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Secrets = testSecrets
	cfg.Session.MaxAge = time.Second
	cfg.Session.AutoUpdate = false
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	cfg.Metrics.Enabled = true
	return cfg
}

// newHarness builds a file-backed Manager on a fake clock with alice and bob known
// to the user provider. mutate and opts may adjust the config and builder.
func newHarness(t *testing.T, mutate func(*Config), opts ...func(*Builder)) *harness {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	h := &harness{
		clock: newTestClock(),
		users: newTestUsers("alice", "bob"),
		audit: &captureSink{},
	}

	b := New().
		WithConfig(cfg).
		WithUserProvider(h.users).
		WithAuthenticator(passwordAuth).
		WithAuditSink(h.audit).
		WithClock(h.clock.Now)

	if cfg.Session.Storage == StorageFS {
		store, err := session.NewFileStore(t.TempDir())
		if err != nil {
			t.Fatalf("file store: %v", err)
		}
		h.store = store
		b.WithStore(store)
	}
	for _, opt := range opts {
		opt(b)
	}

	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if h.store == nil {
		h.store = m.store
	}
	h.m = m
	t.Cleanup(func() { _ = m.Close() })
	return h
}

func (h *harness) signIn(t *testing.T, user string) string {
	t.Helper()
	tok, err := h.m.SignIn(context.Background(), creds(user))
	if err != nil {
		t.Fatalf("sign in %s: %v", user, err)
	}
	if tok == "" {
		t.Fatalf("sign in %s was rejected", user)
	}
	return tok
}

func (h *harness) userOf(t *testing.T, tok string) *User {
	t.Helper()
	u, err := h.m.GetUser(context.Background(), tok)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	return u
}

// flushAudit drains the dispatcher so every event emitted so far is in h.audit.
func (h *harness) flushAudit(t *testing.T) {
	t.Helper()
	if err := h.m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

// failingStore fails every operation with ErrStoreUnavailable.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (session.Record, bool, error) {
	return session.Record{}, false, session.ErrStoreUnavailable
}
func (failingStore) Set(context.Context, session.Record) error { return session.ErrStoreUnavailable }
func (failingStore) Remove(context.Context, string) error      { return session.ErrStoreUnavailable }
func (failingStore) List(context.Context) ([]string, error) {
	return nil, session.ErrStoreUnavailable
}
func (failingStore) CompareAndSwap(context.Context, string, string, session.Record) (bool, error) {
	return false, session.ErrStoreUnavailable
}

// barrierStore holds the first n Gets until all n have read, so concurrent
// validations all observe the same record before any of them renews it.
type barrierStore struct {
	session.Store
	n     int64
	reads atomic.Int64
	wg    sync.WaitGroup
}

func newBarrierStore(t *testing.T, n int) *barrierStore {
	t.Helper()
	fs, err := session.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	s := &barrierStore{Store: fs, n: int64(n)}
	s.wg.Add(n)
	return s
}

func (s *barrierStore) Get(ctx context.Context, ownerID string) (session.Record, bool, error) {
	rec, ok, err := s.Store.Get(ctx, ownerID)
	if s.reads.Add(1) <= s.n {
		s.wg.Done()
		s.wg.Wait()
	}
	return rec, ok, err
}

// writeRaw stores data verbatim as the record file for ownerID.
func writeRaw(fs *session.FileStore, ownerID, data string) error {
	return os.WriteFile(filepath.Join(fs.Dir(), url.PathEscape(ownerID)), []byte(data), 0o600)
}
