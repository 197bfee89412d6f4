package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yegors/co-translate/pkg/logger"
)

func TestPoolRunsEveryJob(t *testing.T) {
	p := NewPool(3, 2, logger.NewNop())

	var done atomic.Int32
	for i := 0; i < 20; i++ {
		if err := p.Submit(context.Background(), func() { done.Add(1) }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	p.Close()

	if n := done.Load(); n != 20 {
		t.Fatalf("ran %d jobs, want 20", n)
	}
}

func TestPoolSubmitAfterClose(t *testing.T) {
	p := NewPool(1, 1, logger.NewNop())
	p.Close()
	p.Close()

	if err := p.Submit(context.Background(), func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("Submit = %v, want ErrPoolClosed", err)
	}
}

func TestPoolBackpressure(t *testing.T) {
	p := NewPool(1, 1, logger.NewNop())
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	p.Submit(context.Background(), func() {
		close(started)
		<-release
	})
	<-started

	// Fills the queue.
	if err := p.Submit(context.Background(), func() {}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Submit(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Submit on full queue = %v", err)
	}
	close(release)
}

func TestPoolSurvivesPanics(t *testing.T) {
	p := NewPool(1, 2, logger.NewNop())

	var ran atomic.Bool
	p.Submit(context.Background(), func() { panic("bad job") })
	p.Submit(context.Background(), func() { ran.Store(true) })
	p.Close()

	if !ran.Load() {
		t.Fatal("job after panic did not run")
	}
}
