package goSession

import (
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/token"
)

// Config is the complete Manager configuration. Start from DefaultConfig and
// override fields; Build validates the result.
type Config struct {
	Token     TokenConfig
	Secrets   token.Secrets
	Session   SessionConfig
	Callbacks CallbackConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Sweep     SweepConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenMode selects where the transport carries the token.
type TokenMode string

const (
	TokenModeCookie TokenMode = "cookie"
	TokenModeHeader TokenMode = "header"
)

// TokenConfig controls the token codec and how transports carry it.
type TokenConfig struct {
	Name   string // cookie name
	Mode   TokenMode
	Header string
	Format token.Format
	Codec  token.Kind

	CookiePath   string
	CookieDomain string
	SecureCookie bool
	SameSite     http.SameSite
}

/*
====================================
SESSION CONFIG
====================================
*/

// StorageKind selects the session backend.
type StorageKind string

const (
	StorageFS       StorageKind = "fs"
	StorageCustom   StorageKind = "custom"
	StorageRedis    StorageKind = "redis"
	StorageSQLite   StorageKind = "sqlite"
	StoragePostgres StorageKind = "postgres"
)

// SessionConfig controls session lifetime and storage.
type SessionConfig struct {
	Storage     StorageKind
	DirPath     string
	RedisPrefix string
	SQLiteDSN   string

	MaxAge time.Duration
	// AutoUpdate rotates the session key once AutoUpdateTimeout has passed since the
	// session window opened.
	AutoUpdate        bool
	AutoUpdateTimeout time.Duration
	// MultipleSessions makes sign-in reuse a live session instead of replacing it.
	MultipleSessions bool
}

// CallbackConfig bounds host callbacks. A zero Timeout disables the bound.
type CallbackConfig struct {
	Timeout time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SweepConfig controls FreeSessions pacing and the background Sweeper.
type SweepConfig struct {
	// RemovalsPerSecond caps store removals during a sweep. Zero means unpaced.
	RemovalsPerSecond float64
	// Interval is the Sweeper period.
	Interval time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the defaults. Secrets are left empty and must be set.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Name:         "auth",
			Mode:         TokenModeCookie,
			Header:       "Authorization",
			Format:       token.FormatHex,
			Codec:        token.KindAES,
			CookiePath:   "/",
			SecureCookie: true,
			SameSite:     http.SameSiteLaxMode,
		},
		Session: SessionConfig{
			Storage:           StorageFS,
			DirPath:           "./sessions",
			RedisPrefix:       "gs",
			SQLiteDSN:         "file:sessions.db",
			MaxAge:            24 * time.Hour,
			AutoUpdate:        true,
			AutoUpdateTimeout: 12 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Sweep: SweepConfig{
			Interval: time.Hour,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}

// Validate reports the first invalid setting. Every error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	// Secrets
	if err := c.Secrets.Validate(); err != nil {
		return invalidConfig("Secrets Key32 and Key16 are required")
	}

	// Token
	switch c.Token.Codec {
	case token.KindAES, token.KindJWT, token.KindPaseto:
	default:
		return invalidConfig("unsupported Token Codec %q", c.Token.Codec)
	}
	if c.Token.Format != token.FormatHex && c.Token.Format != token.FormatBase64 {
		return invalidConfig("unsupported Token Format %q", c.Token.Format)
	}
	switch c.Token.Mode {
	case TokenModeCookie:
		if c.Token.Name == "" {
			return invalidConfig("Token Name is required in cookie mode")
		}
	case TokenModeHeader:
		if c.Token.Header == "" {
			return invalidConfig("Token Header is required in header mode")
		}
	default:
		return invalidConfig("unsupported Token Mode %q", c.Token.Mode)
	}
	if c.Token.SameSite == http.SameSiteNoneMode && !c.Token.SecureCookie {
		return invalidConfig("Token SameSite=None requires SecureCookie")
	}

	// Session
	if c.Session.MaxAge <= 0 {
		return invalidConfig("Session MaxAge must be > 0")
	}
	if c.Session.AutoUpdate {
		if c.Session.AutoUpdateTimeout <= 0 {
			return invalidConfig("Session AutoUpdateTimeout must be > 0 when AutoUpdate is true")
		}
		if c.Session.AutoUpdateTimeout >= c.Session.MaxAge {
			return invalidConfig("Session AutoUpdateTimeout must be < MaxAge")
		}
	}
	switch c.Session.Storage {
	case StorageFS:
		if c.Session.DirPath == "" {
			return invalidConfig("Session DirPath is required for fs storage")
		}
	case StorageRedis:
		if c.Session.RedisPrefix == "" {
			return invalidConfig("Session RedisPrefix is required for redis storage")
		}
	case StorageSQLite:
		if c.Session.SQLiteDSN == "" {
			return invalidConfig("Session SQLiteDSN is required for sqlite storage")
		}
	case StorageCustom, StoragePostgres:
	default:
		return invalidConfig("unsupported Session Storage %q", c.Session.Storage)
	}

	// Callbacks
	if c.Callbacks.Timeout < 0 {
		return invalidConfig("Callbacks Timeout must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalidConfig("Audit BufferSize must be > 0 when Audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return invalidConfig("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Sweep
	if c.Sweep.RemovalsPerSecond < 0 {
		return invalidConfig("Sweep RemovalsPerSecond must be >= 0")
	}
	if c.Sweep.Interval < 0 {
		return invalidConfig("Sweep Interval must be >= 0")
	}

	return nil
}
