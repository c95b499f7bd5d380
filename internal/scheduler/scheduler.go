// Package scheduler runs the riverlog background jobs on cron schedules:
// the hourly saved-river flow refresh, the nightly session sweep with flow
// cache pruning, and the daily license expiry scan. Each job is a small
// service with a narrow dependency interface and a Run method that accepts
// an explicit reference time for deterministic testing.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"riverlog/internal/config"
	"riverlog/internal/types"
)

// jobTimeout bounds a single job run so a stuck upstream cannot pin a cron
// slot forever.
const jobTimeout = 10 * time.Minute

// Job is a single scheduled unit of work. Run receives the scheduled
// reference time.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) error
}

// Scheduler owns the cron runner and the registered jobs.
type Scheduler struct {
	cron   *cron.Cron
	clock  types.Clock
	logger *slog.Logger
}

// New creates a Scheduler and registers the standard riverlog jobs on the
// configured cron specs. Jobs whose spec fails to parse are skipped with an
// error log rather than aborting startup.
func New(cfg config.SchedulerConfig, refresh, maintenance, licenses Job, clock types.Clock, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:   cron.New(),
		clock:  clock,
		logger: logger,
	}
	s.register(cfg.RiverRefreshSpec, refresh)
	s.register(cfg.SessionSweepSpec, maintenance)
	s.register(cfg.LicenseScanSpec, licenses)
	return s
}

func (s *Scheduler) register(spec string, job Job) {
	if job == nil {
		return
	}
	_, err := s.cron.AddFunc(spec, func() {
		s.runJob(job)
	})
	if err != nil {
		s.logger.Error("failed to schedule job", "job", job.Name(), "spec", spec, "error", err)
		return
	}
	s.logger.Info("scheduled job", "job", job.Name(), "spec", spec)
}

func (s *Scheduler) runJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	now := s.clock.Now()
	start := time.Now()
	if err := job.Run(ctx, now); err != nil {
		s.logger.Error("job failed", "job", job.Name(), "duration", time.Since(start), "error", err)
		return
	}
	s.logger.Info("job completed", "job", job.Name(), "duration", time.Since(start))
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for any running job to finish. It returns
// the context's error when the wait is cut short.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("shutdown timed out waiting for running jobs")
		return ctx.Err()
	}
}
