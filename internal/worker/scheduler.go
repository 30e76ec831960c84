package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap"
)

// Scheduler runs the periodic overdue scan.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// RiverScheduler runs the scan as a River periodic job so multiple
// instances sharing a database do not each send reminders.
type RiverScheduler struct {
	client *river.Client[pgx.Tx]
	logger *zap.Logger
}

// NewRiverScheduler registers the overdue worker and its periodic job.
func NewRiverScheduler(pool *pgxpool.Pool, checker OverdueChecker, interval time.Duration, maxWorkers int, logger *zap.Logger) (*RiverScheduler, error) {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	workers := river.NewWorkers()
	river.AddWorker(workers, NewOverdueCheckWorker(checker, logger))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(interval),
				func() (river.JobArgs, *river.InsertOpts) {
					return OverdueCheckArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	logger.Info("river scheduler initialized", zap.Duration("interval", interval))
	return &RiverScheduler{client: client, logger: logger}, nil
}

func (s *RiverScheduler) Start(ctx context.Context) error {
	return s.client.Start(ctx)
}

func (s *RiverScheduler) Stop(ctx context.Context) error {
	return s.client.Stop(ctx)
}

// TickerScheduler runs the scan in process on a fixed interval. It is used
// when no database is configured.
type TickerScheduler struct {
	checker  OverdueChecker
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewTickerScheduler creates a ticker-driven scheduler.
func NewTickerScheduler(checker OverdueChecker, interval time.Duration, logger *zap.Logger) *TickerScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TickerScheduler{checker: checker, interval: interval, logger: logger, now: time.Now}
}

// Start runs one scan immediately and then one per interval.
func (s *TickerScheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("overdue interval must be positive")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			s.run(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

func (s *TickerScheduler) run(ctx context.Context) {
	if _, err := s.checker.CheckOverdue(ctx, s.now()); err != nil {
		s.logger.Warn("overdue check failed", zap.Error(err))
	}
}

// Stop cancels the loop and waits for an in-flight scan.
func (s *TickerScheduler) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
