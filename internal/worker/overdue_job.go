package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-portal/internal/domain"
)

// OverdueChecker scans for overdue tickets and sends reminders.
type OverdueChecker interface {
	CheckOverdue(ctx context.Context, now time.Time) ([]domain.Ticket, error)
}

// OverdueCheckArgs is the periodic reminder scan.
type OverdueCheckArgs struct{}

// Kind returns the job kind identifier.
func (OverdueCheckArgs) Kind() string { return "overdue_ticket_check" }

// InsertOpts keeps a single attempt per run; a failed scan waits for the next period.
func (OverdueCheckArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
	}
}

// OverdueCheckWorker runs the overdue scan for River.
type OverdueCheckWorker struct {
	river.WorkerDefaults[OverdueCheckArgs]
	checker OverdueChecker
	logger  *zap.Logger
	now     func() time.Time
}

// NewOverdueCheckWorker creates the worker.
func NewOverdueCheckWorker(checker OverdueChecker, logger *zap.Logger) *OverdueCheckWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueCheckWorker{checker: checker, logger: logger, now: time.Now}
}

// Work runs one scan.
func (w *OverdueCheckWorker) Work(ctx context.Context, _ *river.Job[OverdueCheckArgs]) error {
	if w == nil || w.checker == nil {
		return fmt.Errorf("overdue check worker is not initialized")
	}
	overdue, err := w.checker.CheckOverdue(ctx, w.now())
	if err != nil {
		return fmt.Errorf("overdue check: %w", err)
	}
	w.logger.Info("overdue reminders queued", zap.Int("tickets", len(overdue)))
	return nil
}
