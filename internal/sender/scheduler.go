package sender

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobResult records the outcome of one scheduled run.
type JobResult struct {
	Status    string // "completed", "failed", "skipped"
	Duration  time.Duration
	Timestamp time.Time
}

// Scheduler re-runs a single transfer on a cron schedule, guarding against
// overlapping runs the way the teacher's per-backup-entry BackupJob does —
// here there is exactly one job, since rudp-send transfers one file.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu         sync.Mutex
	running    bool
	LastResult *JobResult
}

// NewScheduler registers runFn against the given cron expression. runFn
// performs one complete handshake/send/teardown cycle.
func NewScheduler(expr string, logger *slog.Logger, runFn func(ctx context.Context) error) (*Scheduler, error) {
	s := &Scheduler{
		logger: logger,
	}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))
	if _, err := c.AddFunc(expr, func() { s.execute(runFn) }); err != nil {
		return nil, fmt.Errorf("adding cron schedule %q: %w", expr, err)
	}
	s.cron = c
	return s, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started")
	s.cron.Start()
}

// Stop stops the scheduler and waits for an in-flight run to finish, up to
// ctx's deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("scheduler stopping")
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
		s.logger.Info("scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) execute(runFn func(ctx context.Context) error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("transfer already running, skipping scheduled tick")
		s.LastResult = &JobResult{Status: "skipped", Timestamp: time.Now()}
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("scheduled transfer triggered")
	start := time.Now()
	err := runFn(context.Background())
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("scheduled transfer failed", "error", err, "duration", duration)
		s.LastResult = &JobResult{Status: "failed", Duration: duration, Timestamp: time.Now()}
		return
	}
	s.logger.Info("scheduled transfer completed", "duration", duration)
	s.LastResult = &JobResult{Status: "completed", Duration: duration, Timestamp: time.Now()}
}
