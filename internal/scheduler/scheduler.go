package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/onurcolak/recurring-mailing-service/pkg/logger"
)

// sweeper is the minimal interface the scheduler needs from the dispatch
// service; a small fake implements it in tests.
type sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Scheduler fires the dispatch sweep once per minute. The cron engine aligns
// ticks to minute boundaries, so each tick covers exactly one calendar minute.
type Scheduler struct {
	dispatch   sweeper
	cronEngine *cron.Cron
	entryID    cron.EntryID

	mu       sync.RWMutex
	running  bool
	stopping bool
	ctx      context.Context

	// Statistics
	lastTickAt      time.Time
	ticksCount      int64
	dispatchedTotal int64
}

func New(dispatch sweeper, loc *time.Location) *Scheduler {
	s := &Scheduler{
		dispatch:   dispatch,
		cronEngine: cron.New(cron.WithLocation(loc)),
	}

	// Every minute, on the minute.
	entryID, err := s.cronEngine.AddFunc("* * * * *", s.onTick)
	if err != nil {
		// The cron expression is a constant; failing here means a build-time mistake.
		logger.Fatalf("Failed to register dispatch cron job: %v", err)
	}
	s.entryID = entryID

	return s
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		logger.Warnf("Scheduler is already running")
		return nil
	}
	if s.stopping {
		// A Stop is still draining in-flight ticks; restarting the cron engine
		// underneath it would leave it waiting on a scheduler that came back.
		return errors.New("scheduler is stopping, try again once the drain completes")
	}

	s.running = true
	s.ctx = ctx
	s.cronEngine.Start()

	logger.Infof("Scheduler started, sweeping once per minute")

	return nil
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is not running")
		return nil
	}

	s.running = false
	s.stopping = true
	s.mu.Unlock()

	// Stop prevents new ticks; the returned context completes once in-flight
	// ticks have returned.
	<-s.cronEngine.Stop().Done()

	s.mu.Lock()
	s.stopping = false
	s.mu.Unlock()

	logger.Infof("Scheduler stopped")
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) onTick() {
	s.mu.Lock()
	ctx := s.ctx
	s.lastTickAt = time.Now()
	s.ticksCount++
	tickNumber := s.ticksCount
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	logger.Debugf("[Tick #%d] Running dispatch sweep", tickNumber)

	dispatched, err := s.dispatch.Sweep(ctx)
	if err != nil {
		logger.Errorf("[Tick #%d] Dispatch sweep failed: %v", tickNumber, err)
		return
	}

	if dispatched > 0 {
		logger.Infof("[Tick #%d] Dispatched %d send job(s)", tickNumber, dispatched)
	}

	s.mu.Lock()
	s.dispatchedTotal += int64(dispatched)
	s.mu.Unlock()
}

type Status struct {
	Running         bool      `json:"running"`
	LastTickAt      time.Time `json:"lastTickAt,omitempty"`
	NextTickAt      time.Time `json:"nextTickAt,omitempty"`
	TicksCount      int64     `json:"ticksCount"`
	DispatchedTotal int64     `json:"dispatchedTotal"`
}

func (s *Scheduler) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Running:         s.running,
		LastTickAt:      s.lastTickAt,
		TicksCount:      s.ticksCount,
		DispatchedTotal: s.dispatchedTotal,
	}

	if s.running {
		status.NextTickAt = s.cronEngine.Entry(s.entryID).Next
	}

	return status
}
