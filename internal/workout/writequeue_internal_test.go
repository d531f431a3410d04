package workout

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/myrjola/burnplan/internal/testhelpers"
)

func TestWriteQueue(t *testing.T) {
	ctx := t.Context()
	q := newWriteQueue(2, testhelpers.NewLogger(testhelpers.NewWriter(t)))

	var (
		mu      sync.Mutex
		applied []int
	)
	record := func(i int) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			applied = append(applied, i)
			return nil
		}
	}

	for i := range 5 {
		q.enqueue(ctx, "record", record(i))
	}
	q.enqueue(ctx, "fail", func(context.Context) error { return errors.New("disk full") })
	q.enqueue(ctx, "record", record(5))

	if err := q.flush(ctx); err != nil {
		t.Fatalf("flush() error = %v", err)
	}
	mu.Lock()
	got := slices.Clone(applied)
	mu.Unlock()
	if want := []int{0, 1, 2, 3, 4, 5}; !slices.Equal(got, want) {
		t.Errorf("applied = %v, want %v", got, want)
	}

	if err := q.close(ctx); err != nil {
		t.Fatalf("close() error = %v", err)
	}
	q.enqueue(ctx, "record", record(6))
	if err := q.flush(ctx); err != nil {
		t.Errorf("flush() after close error = %v", err)
	}
	if err := q.close(ctx); err != nil {
		t.Errorf("second close() error = %v", err)
	}
	if len(applied) != 6 {
		t.Errorf("write applied after close: %v", applied)
	}
}

func TestWriteQueue_OutlivesCallerCancellation(t *testing.T) {
	q := newWriteQueue(1, testhelpers.NewLogger(testhelpers.NewWriter(t)))
	ctx, cancel := context.WithCancel(t.Context())

	release := make(chan struct{})
	ran := make(chan error, 1)
	q.enqueue(ctx, "blocked", func(context.Context) error {
		<-release
		return nil
	})
	q.enqueue(ctx, "observe", func(opCtx context.Context) error {
		ran <- opCtx.Err()
		return nil
	})
	cancel()
	close(release)

	if err := <-ran; err != nil {
		t.Errorf("write saw cancelled context: %v", err)
	}
	if err := q.close(t.Context()); err != nil {
		t.Fatalf("close() error = %v", err)
	}
}
