package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tabwell/backend/internal/logging"
)

// ErrClosed indicates a submit after the scheduler stopped accepting tasks.
var ErrClosed = errors.New("scheduler is closed")

// Task is a unit of registry mutation plus its persistence and disposal
// side effects. Tasks run to completion on the worker; there is no
// cancellation mid-task.
type Task func(ctx context.Context) error

// DefaultQueueSize bounds the task queue when no size is configured.
const DefaultQueueSize = 64

type item struct {
	ctx    context.Context
	task   Task
	result chan error
}

// Scheduler is a single-worker FIFO task queue. All mutations submitted to
// the same scheduler execute strictly in submission order and never overlap,
// which is the total order that keeps the registry, the persistence store,
// and disposal consistent with each other.
type Scheduler struct {
	queue   chan item
	closing chan struct{}
	done    chan struct{}
	logger  *logging.Logger

	closeOnce sync.Once

	onDepthChange func(int)
}

// New creates a scheduler and starts its worker. queueSize <= 0 falls back
// to DefaultQueueSize.
func New(queueSize int, logger *logging.Logger) *Scheduler {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	s := &Scheduler{
		queue:   make(chan item, queueSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		logger:  logger,
	}

	go s.work()
	return s
}

// OnDepthChange registers a callback observing queue depth after every
// enqueue and dequeue. Wire-up time only; not safe to call once tasks flow.
func (s *Scheduler) OnDepthChange(fn func(int)) {
	s.onDepthChange = fn
}

// Submit enqueues a task and returns a channel that carries its result.
// Submission does not wait for execution; the returned channel is buffered,
// so callers are free to discard it. A full queue applies backpressure to
// the submitter until space frees up or the scheduler closes, whichever
// comes first.
func (s *Scheduler) Submit(ctx context.Context, task Task) <-chan error {
	result := make(chan error, 1)

	select {
	case <-s.closing:
		result <- ErrClosed
		return result
	default:
	}

	select {
	case s.queue <- item{ctx: ctx, task: task, result: result}:
		s.notifyDepth()
	case <-s.closing:
		result <- ErrClosed
	}
	return result
}

// work drains the queue one task at a time, in submission order. On close
// it finishes whatever is already queued, then exits.
func (s *Scheduler) work() {
	defer close(s.done)

	for {
		select {
		case it := <-s.queue:
			s.notifyDepth()
			s.run(it)
		case <-s.closing:
			for {
				select {
				case it := <-s.queue:
					s.notifyDepth()
					s.run(it)
				default:
					return
				}
			}
		}
	}
}

func (s *Scheduler) run(it item) {
	defer func() {
		if r := recover(); r != nil {
			// A panicking task must not take down the worker; every
			// queued mutation behind it still has to run.
			err := fmt.Errorf("task panic: %v", r)
			s.logger.Error("mutation task panicked", zap.Any("panic", r))
			it.result <- err
		}
	}()

	it.result <- it.task(it.ctx)
}

// Close stops intake and waits for queued tasks to drain, bounded by ctx.
// A timeout means the worker is still running: the caller must not assume
// the worker's state is safe to touch. The worker itself keeps draining and
// exits once the stuck task finishes; it is never interrupted mid-task.
func (s *Scheduler) Close(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })

	select {
	case <-s.done:
	case <-ctx.Done():
		return fmt.Errorf("scheduler drain timeout: %w", ctx.Err())
	}

	// A submitter racing the shutdown signal can land an item in the buffer
	// after the worker exited. Reject it rather than strand the caller.
	for {
		select {
		case it := <-s.queue:
			it.result <- ErrClosed
		default:
			return nil
		}
	}
}

func (s *Scheduler) notifyDepth() {
	if s.onDepthChange != nil {
		s.onDepthChange(len(s.queue))
	}
}
