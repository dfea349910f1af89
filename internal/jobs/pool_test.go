package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPool_SubmitExecutesTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPool(2, 8)
	p.Start(ctx)

	done := make(chan struct{})
	err := p.Submit(func(ctx context.Context) error {
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not executed")
	}

	p.Stop()
}

func TestPool_SubmitFailureIsIsolated(t *testing.T) {
	// A failing (or panicking) task must not take workers down with it.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPool(1, 8)
	p.Start(ctx)

	if err := p.Submit(func(ctx context.Context) error {
		return errors.New("boom")
	}); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if err := p.Submit(func(ctx context.Context) error {
		panic("worse boom")
	}); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	done := make(chan struct{})
	if err := p.Submit(func(ctx context.Context) error {
		close(done)
		return nil
	}); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive failing tasks")
	}

	p.Stop()
}

func TestPool_SubmitOnFullQueue(t *testing.T) {
	// Not started: nothing drains the queue, so the buffer fills up.
	p := NewPool(1, 2)

	noop := func(ctx context.Context) error { return nil }

	if err := p.Submit(noop); err != nil {
		t.Fatalf("first Submit returned error: %v", err)
	}
	if err := p.Submit(noop); err != nil {
		t.Fatalf("second Submit returned error: %v", err)
	}

	if err := p.Submit(noop); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestPool_SubmitAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPool(1, 2)
	p.Start(ctx)
	p.Stop()

	err := p.Submit(func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("expected ErrPoolStopped, got %v", err)
	}
}

func TestPool_ConcurrentSubmitAndStop(t *testing.T) {
	// Submitters racing a concurrent Stop must only ever see ErrPoolStopped or
	// ErrQueueFull, never a send on the closed queue.
	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())

		p := NewPool(2, 4)
		p.Start(ctx)

		noop := func(ctx context.Context) error { return nil }

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					err := p.Submit(noop)
					if err != nil && !errors.Is(err, ErrPoolStopped) && !errors.Is(err, ErrQueueFull) {
						t.Errorf("Submit returned unexpected error: %v", err)
						return
					}
					if errors.Is(err, ErrPoolStopped) {
						return
					}
				}
			}()
		}

		p.Stop()
		wg.Wait()
		cancel()
	}
}

func TestPool_StopWaitsForInFlightTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPool(4, 16)
	p.Start(ctx)

	var mu sync.Mutex
	completed := 0

	for i := 0; i < 8; i++ {
		err := p.Submit(func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			completed++
			mu.Unlock()
			return nil
		})
		if err != nil {
			t.Fatalf("Submit %d returned error: %v", i, err)
		}
	}

	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	if completed != 8 {
		t.Fatalf("expected 8 completed tasks after Stop, got %d", completed)
	}
}
