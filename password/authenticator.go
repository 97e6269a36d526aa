package password

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Credentials are what Authenticator accepts from SignIn.
type Credentials struct {
	Identifier string
	Password   string
}

// CredentialLookup returns the user id and stored hash for an identifier such as an
// email address. An empty userID means the identifier is unknown.
type CredentialLookup interface {
	LookupCredential(ctx context.Context, identifier string) (userID, hash string, err error)
}

// CredentialLookupFunc adapts a function to CredentialLookup.
type CredentialLookupFunc func(ctx context.Context, identifier string) (string, string, error)

func (f CredentialLookupFunc) LookupCredential(ctx context.Context, identifier string) (string, string, error) {
	return f(ctx, identifier)
}

// Rehasher is implemented by lookups that can store an upgraded hash.
type Rehasher interface {
	UpdateHash(ctx context.Context, userID, hash string) error
}

// Authenticator implements goSession.Authenticator over Argon2id hashes.
type Authenticator struct {
	hasher *Hasher
	lookup CredentialLookup
	logger *slog.Logger

	dummyOnce sync.Once
	dummy     string
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger for failed hash upgrades. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAuthenticator(hasher *Hasher, lookup CredentialLookup, opts ...Option) *Authenticator {
	a := &Authenticator{hasher: hasher, lookup: lookup, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate returns the user id for matching credentials and "" for anything
// else. credentials must be a Credentials or *Credentials. Unknown identifiers still
// run one verification so they cost the same as a wrong password.
func (a *Authenticator) Authenticate(ctx context.Context, credentials any) (string, error) {
	var c Credentials
	switch v := credentials.(type) {
	case Credentials:
		c = v
	case *Credentials:
		if v == nil {
			return "", nil
		}
		c = *v
	default:
		return "", fmt.Errorf("password: unsupported credentials %T", credentials)
	}
	if c.Identifier == "" || c.Password == "" {
		return "", nil
	}

	userID, hash, err := a.lookup.LookupCredential(ctx, c.Identifier)
	if err != nil {
		return "", fmt.Errorf("lookup credential: %w", err)
	}
	if userID == "" {
		_, _ = a.hasher.Verify(c.Password, a.dummyHash())
		return "", nil
	}

	ok, err := a.hasher.Verify(c.Password, hash)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	if r, isRehasher := a.lookup.(Rehasher); isRehasher {
		if stale, _ := a.hasher.NeedsRehash(hash); stale {
			a.upgrade(ctx, r, userID, c.Password)
		}
	}
	return userID, nil
}

// upgrade stores a hash with the current params. Failures are logged only: the
// sign-in already succeeded.
func (a *Authenticator) upgrade(ctx context.Context, r Rehasher, userID, plain string) {
	upgraded, err := a.hasher.Hash(plain)
	if err != nil {
		a.logger.Warn("password rehash failed", "user_id", userID, "error", err)
		return
	}
	if err := r.UpdateHash(ctx, userID, upgraded); err != nil {
		a.logger.Warn("password hash upgrade not stored", "user_id", userID, "error", err)
	}
}

func (a *Authenticator) dummyHash() string {
	a.dummyOnce.Do(func() {
		a.dummy, _ = a.hasher.Hash("gosession-dummy-password")
	})
	return a.dummy
}
