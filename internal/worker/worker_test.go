package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-portal/internal/domain"
	"github.com/spec-kit/maintenance-portal/internal/events"
	"github.com/spec-kit/maintenance-portal/internal/mailer"
	"github.com/spec-kit/maintenance-portal/internal/observability"
	"github.com/spec-kit/maintenance-portal/internal/repository"
	"github.com/spec-kit/maintenance-portal/internal/service"
)

type countingChecker struct {
	calls atomic.Int32
	err   error
}

func (c *countingChecker) CheckOverdue(context.Context, time.Time) ([]domain.Ticket, error) {
	c.calls.Add(1)
	return []domain.Ticket{{ID: "TKT-1"}}, c.err
}

func TestPoolRunsTasks(t *testing.T) {
	pool, err := NewPool(context.Background(), 5, time.Second, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		require.NoError(t, pool.SubmitDetached(func(ctx context.Context) {
			defer wg.Done()
			assert.NoError(t, ctx.Err())
			ran.Add(1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int32(5), ran.Load())
	assert.Equal(t, 5, pool.Stats()["cap"])

	pool.Shutdown()
	assert.ErrorIs(t, pool.SubmitDetached(func(context.Context) {}), ErrPoolClosed)
}

func TestPoolRecoversPanics(t *testing.T) {
	pool, err := NewPool(context.Background(), 2, time.Second, nil)
	require.NoError(t, err)
	defer pool.Shutdown()

	require.NoError(t, pool.SubmitDetached(func(context.Context) { panic("boom") }))
	done := make(chan struct{})
	require.NoError(t, pool.SubmitDetached(func(context.Context) { close(done) }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool stopped after panic")
	}
}

func TestPoolRejectsWhenBusy(t *testing.T) {
	pool, err := NewPool(context.Background(), 1, time.Second, nil)
	require.NoError(t, err)
	defer pool.Shutdown()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.SubmitDetached(func(context.Context) {
		close(started)
		<-release
	}))
	<-started

	submitted := make(chan error, 1)
	go func() { submitted <- pool.SubmitDetached(func(context.Context) {}) }()
	select {
	case err := <-submitted:
		assert.ErrorIs(t, err, ErrPoolBusy)
	case <-time.After(time.Second):
		t.Fatal("submit blocked on a busy pool")
	}
	close(release)
}

type stalledSender struct {
	started chan struct{}
}

func (s *stalledSender) Send(ctx context.Context, _ mailer.Message) error {
	select {
	case s.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestStalledMailDoesNotBlockTicketWrites(t *testing.T) {
	pool, err := NewPool(context.Background(), 1, 2*time.Second, nil)
	require.NoError(t, err)
	defer pool.Shutdown()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	sender := &stalledSender{started: make(chan struct{}, 1)}
	service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		AccountRepo: repository.NewMemoryAccountRepository(
			domain.Account{ID: "ADMIN1", Role: domain.RoleAdmin, Email: "ga@example.com"},
		),
		Sender:          sender,
		Executor:        pool,
		Metrics:         metrics,
		DeliveryTimeout: 500 * time.Millisecond,
	}).RegisterHandlers()
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewMemoryTicketRepository(),
		Dispatcher: dispatcher,
	})

	ctx := context.Background()
	_, err = tickets.CreateTicket(ctx, service.CreateTicketInput{ReporterID: "STORE-A", ProblemDescription: "Leak"})
	require.NoError(t, err)
	select {
	case <-sender.started:
	case <-time.After(time.Second):
		t.Fatal("first delivery never started")
	}

	created := make(chan error, 1)
	go func() {
		_, err := tickets.CreateTicket(ctx, service.CreateTicketInput{ReporterID: "STORE-A", ProblemDescription: "Second leak"})
		created <- err
	}()
	select {
	case err := <-created:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ticket write blocked behind a stalled delivery")
	}

	assert.Equal(t, int64(1), metrics.Snapshot().Notifications["ticket_created|dropped"])
	require.Eventually(t, func() bool {
		return metrics.Snapshot().Notifications["ticket_created|failed"] == 1
	}, 2*time.Second, 10*time.Millisecond, "stalled delivery is cut off by its timeout")
}

func TestPoolSatisfiesExecutor(t *testing.T) {
	var _ service.Executor = (*Pool)(nil)
}

func TestOverdueCheckArgs(t *testing.T) {
	assert.Equal(t, "overdue_ticket_check", OverdueCheckArgs{}.Kind())
	opts := OverdueCheckArgs{}.InsertOpts()
	assert.Equal(t, river.QueueDefault, opts.Queue)
	assert.Equal(t, 1, opts.MaxAttempts)
}

func TestOverdueCheckWorkerWork(t *testing.T) {
	checker := &countingChecker{}
	w := NewOverdueCheckWorker(checker, nil)
	require.NoError(t, w.Work(context.Background(), nil))
	assert.Equal(t, int32(1), checker.calls.Load())

	checker.err = errors.New("store down")
	assert.ErrorContains(t, w.Work(context.Background(), nil), "store down")

	var nilWorker *OverdueCheckWorker
	assert.ErrorContains(t, nilWorker.Work(context.Background(), nil), "not initialized")
}

func TestTickerSchedulerRunsOnStart(t *testing.T) {
	checker := &countingChecker{}
	s := NewTickerScheduler(checker, 10*time.Millisecond, nil)
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return checker.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	after := checker.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, checker.calls.Load())
}

func TestTickerSchedulerRejectsZeroInterval(t *testing.T) {
	s := NewTickerScheduler(&countingChecker{}, 0, nil)
	assert.Error(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
