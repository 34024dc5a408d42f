package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/itsm-ticket-service/internal/events"
)

var (
	// ErrQueueFull is returned when the buffer cannot take another event.
	ErrQueueFull = errors.New("notification queue full")
	// ErrStopped is returned by Publish after Stop.
	ErrStopped = errors.New("notification worker stopped")
)

// NotificationWorker moves event dispatch off the request path. Services
// publish into a bounded queue and a fixed pool drains it into the dispatcher.
type NotificationWorker struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	workers    int
	timeout    time.Duration

	mu      sync.RWMutex
	queue   chan events.Event
	stopped bool
	wg      sync.WaitGroup
}

// Options tunes the worker pool.
type Options struct {
	Workers    int
	BufferSize int
	// HandlerTimeout bounds a single dispatch.
	HandlerTimeout time.Duration
}

// NewNotificationWorker builds a worker around dispatcher.
func NewNotificationWorker(dispatcher events.Dispatcher, logger *zap.Logger, opts Options) *NotificationWorker {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		dispatcher: dispatcher,
		logger:     logger,
		workers:    opts.Workers,
		timeout:    opts.HandlerTimeout,
		queue:      make(chan events.Event, opts.BufferSize),
	}
}

// Start launches the pool. Dispatch contexts derive from ctx without its
// cancellation so queued events still drain during shutdown.
func (w *NotificationWorker) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			for event := range w.queue {
				w.dispatch(base, id, event)
			}
		}(i)
	}
}

func (w *NotificationWorker) dispatch(ctx context.Context, id int, event events.Event) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.dispatcher.Publish(ctx, event); err != nil {
		w.logger.Warn("event handler failed",
			zap.Int("worker", id),
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.Ticket.ID),
			zap.Error(err))
	}
}

// Publish enqueues the event without blocking.
func (w *NotificationWorker) Publish(_ context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}
	select {
	case w.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new events and waits for queued ones until ctx expires.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ events.Publisher = (*NotificationWorker)(nil)
