package scheduler

import (
	"context"
	"log/slog"
	"time"

	"cms_mirror/internal/service"
)

// Reconciler runs a full reconciliation.
type Reconciler interface {
	Run(ctx context.Context) (service.Report, error)
}

// Scheduler periodically reconciles the mirror as a safety net for missed
// webhooks. Runs happen on the Start loop one at a time; ticks that fire
// during a run are dropped by the ticker.
type Scheduler struct {
	reconciler Reconciler
	interval   time.Duration
	timeout    time.Duration
	logger     *slog.Logger
}

func NewScheduler(reconciler Reconciler, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Scheduler{
		reconciler: reconciler,
		interval:   interval,
		timeout:    timeout,
		logger:     logger.With("component", "scheduler"),
	}
}

// Start reconciles immediately and then every interval until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "timeout", s.timeout)

	s.runSync(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runSync(ctx)
		}
	}
}

func (s *Scheduler) runSync(ctx context.Context) {
	syncCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.reconciler.Run(syncCtx)
	if err != nil {
		s.logger.Error("reconciliation failed", "error", err)
	}
	for kind, processed := range report.Processed() {
		s.logger.Debug("reconciled", "kind", kind, "processed", processed)
	}
}
