package main

import (
	"context"
	"log/slog"

	goSession "github.com/MrEthical07/goSession"
)

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	m, cleanup, err := buildManager(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Once {
		report, err := m.FreeSessions(ctx)
		if err != nil {
			return err
		}
		logger.Info("sweep finished", "scanned", report.Scanned, "removed", report.Removed, "failed", report.Failed)
		return nil
	}

	sweeper := goSession.NewSweeper(m, cfg.Interval)
	sweeper.Start()
	<-ctx.Done()
	sweeper.Stop()
	return nil
}
