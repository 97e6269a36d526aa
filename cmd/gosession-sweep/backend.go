package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// buildManager opens the configured backend and returns a Manager over it plus a
// cleanup for the backend connections.
func buildManager(ctx context.Context, cfg config, logger *slog.Logger) (*goSession.Manager, func(), error) {
	mcfg := goSession.DefaultConfig()
	mcfg.Session.Storage = goSession.StorageKind(cfg.Storage)
	mcfg.Session.DirPath = cfg.DirPath
	mcfg.Session.RedisPrefix = cfg.RedisPrefix
	mcfg.Session.SQLiteDSN = cfg.SQLiteDSN
	mcfg.Sweep.Interval = cfg.Interval
	mcfg.Sweep.RemovalsPerSecond = cfg.RemovalsPerSecond
	mcfg.Secrets.Key32, mcfg.Secrets.Key16 = cfg.Key32, cfg.Key16

	// Sweeping never decodes a token, so throwaway secrets are enough.
	if mcfg.Secrets.Key32 == "" || mcfg.Secrets.Key16 == "" {
		k32, err := internal.NewSessionKey()
		if err != nil {
			return nil, nil, err
		}
		k16, err := internal.NewSessionKey()
		if err != nil {
			return nil, nil, err
		}
		mcfg.Secrets.Key32, mcfg.Secrets.Key16 = k32, k16
	}

	b := goSession.New().
		WithConfig(mcfg).
		WithLogger(logger).
		WithUserProvider(goSession.UserProviderFunc(func(context.Context, string) (*goSession.User, error) {
			return nil, nil
		}))

	cleanup := func() {}
	switch mcfg.Session.Storage {
	case goSession.StorageRedis:
		client, closeRedis, err := openRedis(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		b.WithRedis(client)
		cleanup = closeRedis
	case goSession.StoragePostgres:
		if cfg.PostgresDSN == "" {
			return nil, nil, errors.New("postgres storage requires -postgres-dsn or DATABASE_URL")
		}
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.WithPostgres(pool)
		cleanup = pool.Close
	}

	m, err := b.Build()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return m, func() {
		if err := m.Close(); err != nil {
			logger.Warn("close session store", "error", err)
		}
		cleanup()
	}, nil
}

func openRedis(cfg config, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	addr := cfg.RedisAddr
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		logger.Info("using redis", "addr", addr)
		return client, func() { _ = client.Close() }, nil
	}
	if cfg.Env != "dev" {
		return nil, nil, errors.New("redis storage requires -redis-addr or REDIS_ADDR")
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	logger.Warn("using miniredis, sessions are not shared with any server", "addr", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}
