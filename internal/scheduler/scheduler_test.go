package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSweeper is a simple test double for the dispatch service.
type fakeSweeper struct {
	dispatched int
	err        error
	calls      int
}

func (f *fakeSweeper) Sweep(ctx context.Context) (int, error) {
	f.calls++
	return f.dispatched, f.err
}

func TestScheduler_TickUpdatesStatistics(t *testing.T) {
	sweep := &fakeSweeper{dispatched: 3}
	s := New(sweep, time.UTC)

	s.onTick()
	s.onTick()

	status := s.GetStatus()
	if status.TicksCount != 2 {
		t.Errorf("expected TicksCount=2, got %d", status.TicksCount)
	}
	if status.DispatchedTotal != 6 {
		t.Errorf("expected DispatchedTotal=6, got %d", status.DispatchedTotal)
	}
	if sweep.calls != 2 {
		t.Errorf("expected 2 sweep calls, got %d", sweep.calls)
	}
	if status.LastTickAt.IsZero() {
		t.Error("expected LastTickAt to be set")
	}
}

func TestScheduler_SweepErrorDoesNotCountDispatches(t *testing.T) {
	sweep := &fakeSweeper{dispatched: 5, err: errors.New("db down")}
	s := New(sweep, time.UTC)

	s.onTick()

	status := s.GetStatus()
	if status.TicksCount != 1 {
		t.Errorf("expected TicksCount=1, got %d", status.TicksCount)
	}
	if status.DispatchedTotal != 0 {
		t.Errorf("expected DispatchedTotal=0 after a failed sweep, got %d", status.DispatchedTotal)
	}
}

func TestScheduler_StartAndStopToggleRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(&fakeSweeper{}, time.UTC)

	if s.IsRunning() {
		t.Fatal("expected scheduler to be not running initially")
	}

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("expected scheduler to be running after Start")
	}

	status := s.GetStatus()
	if status.NextTickAt.IsZero() {
		t.Error("expected NextTickAt while running")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if s.IsRunning() {
		t.Fatal("expected scheduler to be not running after Stop")
	}
}

func TestScheduler_StartDuringStopDrainIsRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(&fakeSweeper{}, time.UTC)

	// Simulate the window where Stop has flipped running off but is still
	// waiting for in-flight ticks to drain.
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	if err := s.Start(ctx); err == nil {
		t.Fatal("expected Start during drain to return an error")
	}
	if s.IsRunning() {
		t.Fatal("expected scheduler to stay stopped during drain")
	}

	// Once the drain completes, Start works again.
	s.mu.Lock()
	s.stopping = false
	s.mu.Unlock()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start after drain returned error: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if s.IsRunning() {
		t.Fatal("expected scheduler to be not running after Stop")
	}
}

func TestScheduler_DoubleStartIsNoOp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(&fakeSweeper{}, time.UTC)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second Start returned error: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
}
