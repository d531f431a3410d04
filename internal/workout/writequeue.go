package workout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/myrjola/burnplan/internal/errors"
)

// writeOp is one persistence step issued after the in-memory state was already updated.
type writeOp struct {
	ctx   context.Context //nolint:containedctx // carries the user id and log attributes to the worker.
	label string
	fn    func(ctx context.Context) error
	done  chan struct{}
}

// writeQueue applies writes in order on a single worker without blocking the caller. Failed writes are logged and
// dropped. The in-memory horizon is not rolled back, so the store may lag behind until the next successful write
// of the same plans.
type writeQueue struct {
	ops    chan writeOp
	logger *slog.Logger

	mu       sync.Mutex
	closed   bool
	finished chan struct{}
}

func newWriteQueue(size int, logger *slog.Logger) *writeQueue {
	q := &writeQueue{
		ops:      make(chan writeOp, size),
		logger:   logger,
		mu:       sync.Mutex{},
		closed:   false,
		finished: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *writeQueue) run() {
	defer close(q.finished)
	for op := range q.ops {
		if op.fn != nil {
			if err := op.fn(op.ctx); err != nil {
				q.logger.LogAttrs(op.ctx, slog.LevelError, "persist failed, keeping in-memory state",
					slog.String("operation", op.label), errors.SlogError(err))
			}
		}
		if op.done != nil {
			close(op.done)
		}
	}
}

// enqueue schedules fn. The write outlives the caller's cancellation but keeps its context values. Enqueue blocks
// only when the buffer is full.
func (q *writeQueue) enqueue(ctx context.Context, label string, fn func(ctx context.Context) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.LogAttrs(ctx, slog.LevelError, "write queue closed, dropping write", slog.String("operation", label))
		return
	}
	q.ops <- writeOp{ctx: context.WithoutCancel(ctx), label: label, fn: fn, done: nil}
}

// flush waits until every write enqueued before the call has been applied.
func (q *writeQueue) flush(ctx context.Context) error {
	done := make(chan struct{})
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.ops <- writeOp{ctx: context.WithoutCancel(ctx), label: "flush", fn: nil, done: done}
	q.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush write queue: %w", ctx.Err())
	}
}

// close stops accepting writes and waits for the pending ones.
func (q *writeQueue) close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ops)
	}
	q.mu.Unlock()

	select {
	case <-q.finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close write queue: %w", ctx.Err())
	}
}
