package goSession

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Sweeper calls Manager.FreeSessions on a fixed interval in one background goroutine.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	logger   *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	doneCh    chan struct{}
}

// NewSweeper returns a stopped Sweeper. A non-positive interval falls back to
// Config.Sweep.Interval, then to one hour. With a nil m every sweep reports
// ErrNotReady.
func NewSweeper(m *Manager, interval time.Duration) *Sweeper {
	logger := slog.Default()
	if m != nil {
		if interval <= 0 {
			interval = m.config.Sweep.Interval
		}
		if m.logger != nil {
			logger = m.logger
		}
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		manager:  m,
		interval: interval,
		logger:   logger,
		doneCh:   make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval. It does not block.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.run(ctx)
		s.logger.Info("session sweeper started", "interval", s.interval)
	})
}

// Stop cancels an in-flight sweep and waits for the worker to exit. A stopped
// Sweeper cannot be restarted.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		started := true
		s.startOnce.Do(func() { started = false })
		if !started {
			close(s.doneCh)
			return
		}
		s.cancel()
		<-s.doneCh
		s.logger.Info("session sweeper stopped")
	})
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// sweep ignores a ready Manager's result: FreeSessions already logs and audits it.
func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.manager.FreeSessions(ctx); errors.Is(err, ErrNotReady) {
		s.logger.Warn("session sweep skipped", "error", err)
	}
}
