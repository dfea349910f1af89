package jobs

import (
	"context"
	"errors"
	"sync"

	"github.com/onurcolak/recurring-mailing-service/pkg/logger"
)

// Task is one asynchronous unit of work. Errors are reported here, at the
// job-execution layer, so the submitter never has to wait on them.
type Task func(ctx context.Context) error

// Submitter is the fire-and-forget job capability the dispatch sweep uses.
type Submitter interface {
	Submit(task Task) error
}

// ErrQueueFull is returned when the job buffer has no room; the caller is
// expected to log and move on rather than block.
var ErrQueueFull = errors.New("job queue is full")

// ErrPoolStopped is returned when submitting after shutdown began.
var ErrPoolStopped = errors.New("job pool is stopped")

// Pool executes submitted tasks on a fixed set of workers.
type Pool struct {
	workers int
	queue   chan Task

	mu      sync.Mutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	return &Pool{
		workers: workers,
		queue:   make(chan Task, queueSize),
	}
}

// Start launches the workers. They drain the queue until Stop is called or
// the context is cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	logger.Infof("Job pool started with %d workers", p.workers)
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			p.execute(ctx, id, task)

		case <-ctx.Done():
			return
		}
	}
}

func (p *Pool) execute(ctx context.Context, workerID int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Worker %d: job panicked: %v", workerID, r)
		}
	}()

	if err := task(ctx); err != nil {
		logger.Errorf("Worker %d: job failed: %v", workerID, err)
	}
}

// Submit enqueues a task without blocking. A full queue is a submission
// failure for that one task only; the caller keeps going. The send happens
// under the same mutex Stop holds while closing the queue, so a submit can
// never land on a closed channel.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for in-flight tasks to finish. The close is
// done under the mutex; the wait is not, so workers draining the queue never
// contend with it.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()

	logger.Infof("Job pool stopped")
}
