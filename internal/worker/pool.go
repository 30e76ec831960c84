package worker

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var (
	// ErrPoolClosed is returned when submitting to a released pool.
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrPoolBusy is returned when every worker is occupied. Submitters never wait.
	ErrPoolBusy = errors.New("worker pool is busy")
)

// Pool runs best-effort side effects such as notification delivery. Tasks
// receive the service lifecycle context, which is cancelled on shutdown.
type Pool struct {
	pool    *ants.Pool
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// NewPool creates a bounded pool of size goroutines.
func NewPool(ctx context.Context, size int, shutdownTimeout time.Duration, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	serviceCtx, cancel := context.WithCancel(ctx)
	p, err := ants.NewPool(size,
		ants.WithPanicHandler(func(v interface{}) {
			logger.Error("worker panic recovered", zap.Any("panic", v), zap.Stack("stack"))
		}),
		ants.WithNonblocking(true),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	return &Pool{pool: p, logger: logger, ctx: serviceCtx, cancel: cancel, timeout: shutdownTimeout}, nil
}

// SubmitDetached hands task to an idle worker and returns immediately. When
// no worker is free it returns ErrPoolBusy instead of blocking the caller.
func (p *Pool) SubmitDetached(task func(ctx context.Context)) error {
	if p.pool.IsClosed() {
		return ErrPoolClosed
	}
	err := p.pool.Submit(func() {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("task skipped: service shutting down")
			return
		default:
		}
		task(p.ctx)
	})
	if errors.Is(err, ants.ErrPoolOverload) {
		return ErrPoolBusy
	}
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// Shutdown waits for running tasks up to the configured timeout, then
// cancels the lifecycle context.
func (p *Pool) Shutdown() {
	if err := p.pool.ReleaseTimeout(p.timeout); err != nil {
		p.logger.Warn("worker pool shutdown timeout", zap.Error(err))
	}
	p.cancel()
}

// Stats reports pool occupancy.
func (p *Pool) Stats() map[string]int {
	return map[string]int{
		"running": p.pool.Running(),
		"free":    p.pool.Free(),
		"cap":     p.pool.Cap(),
	}
}
