package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

type config struct {
	Storage     string
	DirPath     string
	RedisAddr   string
	RedisPrefix string
	SQLiteDSN   string
	PostgresDSN string

	Key32 string
	Key16 string

	Once              bool
	Interval          time.Duration
	RemovalsPerSecond float64

	Env       string
	LogLevel  string
	LogFormat string
}

// loadConfig reads environment defaults, then lets flags override them.
func loadConfig(args []string, getenv func(string) string) (config, error) {
	env := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg := config{
		Storage:     env("GOSESSION_STORAGE", string(goSession.StorageFS)),
		DirPath:     env("GOSESSION_DIR", "./sessions"),
		RedisAddr:   getenv("REDIS_ADDR"),
		RedisPrefix: env("GOSESSION_REDIS_PREFIX", "gs"),
		SQLiteDSN:   env("GOSESSION_SQLITE_DSN", "file:sessions.db"),
		PostgresDSN: getenv("DATABASE_URL"),
		Key32:       getenv("GOSESSION_KEY32"),
		Key16:       getenv("GOSESSION_KEY16"),
		Env:         env("ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		LogFormat:   env("LOG_FORMAT", "json"),
		Interval:    time.Hour,
	}

	if v := getenv("GOSESSION_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return config{}, fmt.Errorf("GOSESSION_SWEEP_INTERVAL: %w", err)
		}
		cfg.Interval = d
	}
	if v := getenv("GOSESSION_SWEEP_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return config{}, fmt.Errorf("GOSESSION_SWEEP_RATE: %w", err)
		}
		cfg.RemovalsPerSecond = r
	}

	fs := flag.NewFlagSet("gosession-sweep", flag.ContinueOnError)
	fs.StringVar(&cfg.Storage, "storage", cfg.Storage, "session storage: fs, redis, sqlite or postgres")
	fs.StringVar(&cfg.DirPath, "dir", cfg.DirPath, "session directory for fs storage")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address; empty starts an in-process miniredis in dev")
	fs.StringVar(&cfg.RedisPrefix, "redis-prefix", cfg.RedisPrefix, "redis key prefix")
	fs.StringVar(&cfg.SQLiteDSN, "sqlite-dsn", cfg.SQLiteDSN, "sqlite data source name")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "postgres connection string")
	fs.BoolVar(&cfg.Once, "once", false, "run a single sweep and exit")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "period between sweeps")
	fs.Float64Var(&cfg.RemovalsPerSecond, "rate", cfg.RemovalsPerSecond, "maximum removals per second, 0 for unpaced")
	fs.StringVar(&cfg.Env, "env", cfg.Env, "deployment environment; dev allows the in-process miniredis")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "json or text")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if cfg.Interval <= 0 {
		return config{}, errors.New("interval must be > 0")
	}
	if cfg.RemovalsPerSecond < 0 {
		return config{}, errors.New("rate must be >= 0")
	}
	return cfg, nil
}
