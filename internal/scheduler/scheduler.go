// Package scheduler runs the service's periodic maintenance jobs on gocron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const (
	defaultInterval = 24 * time.Hour
	pruneTimeout    = time.Minute
)

// Pruner removes delivery log rows older than retention.
type Pruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// Config holds the scheduler configuration.
type Config struct {
	Pruner Pruner
	// Retention is how long delivery log rows are kept. Zero disables pruning.
	Retention time.Duration
	// Interval between prune runs. Defaults to 24h.
	Interval time.Duration
	Logger   *slog.Logger
}

// Scheduler manages maintenance jobs using gocron.
type Scheduler struct {
	cron   gocron.Scheduler
	cfg    Config
	job    gocron.Job
	mu     sync.Mutex
	logger *slog.Logger
}

// New creates a new Scheduler.
func New(cfg Config) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{cron: cron, cfg: cfg, logger: logger}, nil
}

// Start schedules the prune job, running it once immediately, and starts the
// gocron scheduler.
func (s *Scheduler) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Pruner == nil || s.cfg.Retention <= 0 {
		s.logger.Info("delivery log pruning disabled")
		s.cron.Start()
		return nil
	}

	job, err := s.cron.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(s.prune),
		gocron.WithName("delivery-log-prune"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduling delivery log prune: %w", err)
	}
	s.job = job

	s.cron.Start()
	s.logger.Info("maintenance scheduler started",
		"retention", s.cfg.Retention, "interval", s.cfg.Interval)
	return nil
}

// Stop shuts down the gocron scheduler, waiting for a running job.
func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

// NextPrune returns when the prune job runs next. The zero time means pruning
// is not scheduled.
func (s *Scheduler) NextPrune() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return time.Time{}
	}
	next, err := s.job.NextRun()
	if err != nil {
		return time.Time{}
	}
	return next
}

func (s *Scheduler) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	start := time.Now()
	n, err := s.cfg.Pruner.Prune(ctx, s.cfg.Retention)
	if err != nil {
		s.logger.Error("delivery log prune failed", "error", err)
		return
	}
	s.logger.Info("delivery log pruned",
		"rows", n, "retention", s.cfg.Retention, "duration", time.Since(start))
}
