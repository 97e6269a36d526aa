package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goSession/access"
	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Builder assembles a Manager. A Builder is single-use.
type Builder struct {
	config Config

	redis     redis.UniversalClient
	pgPool    *pgxpool.Pool
	store     session.Store
	callbacks *session.Callbacks

	userProvider   UserProvider
	authenticator  Authenticator
	signOutHandler SignOutHandler
	auditSink      AuditSink
	logger         *slog.Logger
	now            func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithUserProvider sets the lookup used to resolve the user behind a session. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuthenticator sets the credential check SignIn runs.
func (b *Builder) WithAuthenticator(a Authenticator) *Builder {
	b.authenticator = a
	return b
}

func (b *Builder) WithSignOutHandler(h SignOutHandler) *Builder {
	b.signOutHandler = h
	return b
}

// WithStore supplies a ready session store. It takes precedence over Session.Storage.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithSessionCallbacks supplies the host callbacks for custom storage.
func (b *Builder) WithSessionCallbacks(cb session.Callbacks) *Builder {
	b.callbacks = &cb
	return b
}

// WithRedis supplies the client for redis storage.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPostgres supplies the pool for postgres storage. Build creates the table if
// it is missing.
func (b *Builder) WithPostgres(pool *pgxpool.Pool) *Builder {
	b.pgPool = pool
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now. Tests use it to step through session lifetimes.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Manager.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, invalidConfig("user provider required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- TOKEN CODEC --------
	codec, err := token.New(cfg.Token.Codec, cfg.Secrets, cfg.Token.Format)
	if err != nil {
		return nil, invalidConfig("token codec: %v", err)
	}

	m := &Manager{
		config:         cfg,
		codec:          codec,
		userProvider:   b.userProvider,
		authenticator:  b.authenticator,
		signOutHandler: b.signOutHandler,
		logger:         logger.With("component", "gosession"),
		now:            now,
	}

	// -------- SESSION STORE --------
	store, closer, err := b.openStore(cfg, now)
	if err != nil {
		return nil, err
	}
	m.store = store
	m.closeStore = closer

	m.audit = newAuditDispatcher(cfg.Audit, b.auditSink, m.logger)
	m.metrics = NewMetrics(cfg.Metrics)
	m.evaluator = access.NewEvaluator(access.LevelLookupFunc(m.levelOf), accessAuditSink{m: m})

	// -------- FLOWS --------
	common := flows.Common{
		Codec:  codec,
		Store:  store,
		Now:    now,
		NewKey: internal.NewSessionKey,
		MaxAge: cfg.Session.MaxAge,
	}
	sweep := flows.SweepDeps{
		Common: common,
		OnFailure: func(ownerID string, err error) {
			m.logger.Warn("sweep failed for session", "user_id", ownerID, "error", err)
		},
	}
	if cfg.Sweep.RemovalsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.Sweep.RemovalsPerSecond), 1)
		sweep.Wait = limiter.Wait
	}
	m.flows = flows.New(flows.Deps{
		SignIn: flows.SignInDeps{
			Common:           common,
			MultipleSessions: cfg.Session.MultipleSessions,
		},
		Validate: flows.ValidateDeps{
			Common:            common,
			AutoUpdate:        cfg.Session.AutoUpdate,
			AutoUpdateTimeout: cfg.Session.AutoUpdateTimeout,
			MultipleSessions:  cfg.Session.MultipleSessions,
			LoadUser:          m.loadUser,
		},
		SignOut: flows.SignOutDeps{Common: common},
		Sweep:   sweep,
	})

	b.built = true

	return m, nil
}

func (b *Builder) openStore(cfg Config, now func() time.Time) (session.Store, func() error, error) {
	if b.store != nil {
		return b.store, nil, nil
	}

	switch cfg.Session.Storage {
	case StorageFS:
		store, err := session.NewFileStore(cfg.Session.DirPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open file session store: %w", err)
		}
		return store, nil, nil
	case StorageCustom:
		if b.callbacks == nil {
			return nil, nil, invalidConfig("custom storage requires WithSessionCallbacks or WithStore")
		}
		store, err := session.NewCallbackStore(timedCallbacks(*b.callbacks, cfg.Callbacks.Timeout))
		if err != nil {
			return nil, nil, invalidConfig("session callbacks: %v", err)
		}
		return store, nil, nil
	case StorageRedis:
		if b.redis == nil {
			return nil, nil, invalidConfig("redis storage requires WithRedis")
		}
		return session.NewRedisStore(b.redis, cfg.Session.RedisPrefix).WithClock(now), nil, nil
	case StorageSQLite:
		store, err := session.OpenSQLiteStore(cfg.Session.SQLiteDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite session store: %w", err)
		}
		return store, store.Close, nil
	case StoragePostgres:
		if b.pgPool == nil {
			return nil, nil, invalidConfig("postgres storage requires WithPostgres")
		}
		store := session.NewPostgresStore(b.pgPool)
		if err := store.CreateSchema(context.Background()); err != nil {
			return nil, nil, fmt.Errorf("create postgres session schema: %w", err)
		}
		return store, nil, nil
	default:
		return nil, nil, invalidConfig("unsupported Session Storage %q", cfg.Session.Storage)
	}
}

// timedCallbacks bounds every host storage callback by timeout.
func timedCallbacks(cb session.Callbacks, timeout time.Duration) session.Callbacks {
	if timeout <= 0 || cb.Get == nil || cb.Set == nil || cb.Remove == nil {
		return cb
	}
	out := session.Callbacks{
		Get: func(ctx context.Context, ownerID string) (string, error) {
			return callWithTimeout(ctx, timeout, func(ctx context.Context) (string, error) {
				return cb.Get(ctx, ownerID)
			})
		},
		Set: func(ctx context.Context, ownerID, data string) error {
			_, err := callWithTimeout(ctx, timeout, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, cb.Set(ctx, ownerID, data)
			})
			return err
		},
		Remove: func(ctx context.Context, ownerID string) error {
			_, err := callWithTimeout(ctx, timeout, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, cb.Remove(ctx, ownerID)
			})
			return err
		},
	}
	if cb.List != nil {
		out.List = func(ctx context.Context) ([]string, error) {
			return callWithTimeout(ctx, timeout, cb.List)
		}
	}
	return out
}

// callWithTimeout runs fn and gives up once timeout passes, even if fn ignores its
// context. An abandoned fn keeps running in the background.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(cctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return r.v, fmt.Errorf("%w: %v", ErrCallbackTimeout, r.err)
		}
		return r.v, r.err
	case <-cctx.Done():
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, ErrCallbackTimeout
	}
}
