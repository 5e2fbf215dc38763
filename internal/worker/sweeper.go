package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	applog "conti/internal/log"
)

// SweeperConfig tunes the periodic catch-up sweep.
type SweeperConfig struct {
	// PollInterval is how often to look for unsynced rows.
	PollInterval time.Duration
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{PollInterval: 30 * time.Second}
}

// Sweeper periodically re-mirrors rows the queue missed. It complements the
// message-driven path; both converge on the same synced_at bookkeeping.
type Sweeper struct {
	worker *SyncWorker
	config SweeperConfig
	log    *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSweeper(worker *SyncWorker, config SweeperConfig) *Sweeper {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSweeperConfig().PollInterval
	}
	return &Sweeper{worker: worker, config: config, log: applog.ForComponent("worker")}
}

// Start begins the sweep loop. Returns an error if already running.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	s.log.InfoContext(ctx, "Pending-sync sweeper started",
		"poll_interval", s.config.PollInterval)
	return nil
}

// Stop gracefully stops the sweeper and waits for the loop to drain.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		s.log.InfoContext(ctx, "Pending-sync sweeper stopped")
	case <-ctx.Done():
		s.log.WarnContext(ctx, "Pending-sync sweeper stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// IsRunning reports whether the sweep loop is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	// Sweep immediately on startup
	s.sweep(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if err := s.worker.ProcessPendingExpenses(ctx); err != nil {
		s.log.ErrorContext(ctx, "Pending-sync sweep failed", "error", err)
	}
}
