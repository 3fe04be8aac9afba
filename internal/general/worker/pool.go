// Package worker runs best-effort background jobs off the connection loops.
package worker

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"delivery-realtime/internal/general/logger"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker: pool closed")

// ErrQueueFull is returned by Submit when the target queue has no room.
var ErrQueueFull = errors.New("worker: queue full")

// Job is one unit of background work. Jobs sharing a Key run in submission order.
type Job struct {
	Name    string // log action prefix, e.g. "relay_location"
	Key     string
	Details map[string]any
	Run     func(ctx context.Context) error
}

// Pool is a fixed set of workers, each draining its own bounded FIFO queue.
type Pool struct {
	logger     *logger.Logger
	queues     []chan Job
	jobTimeout time.Duration
	next       atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines with queueSize slots each.
// jobTimeout bounds every job's context; 0 means no per-job timeout.
func NewPool(log *logger.Logger, workers, queueSize int, jobTimeout time.Duration) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		logger:     log,
		queues:     make([]chan Job, workers),
		jobTimeout: jobTimeout,
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := range p.queues {
		p.queues[i] = make(chan Job, queueSize)
		p.wg.Add(1)
		go p.work(p.queues[i])
	}
	return p
}

// Submit enqueues job without blocking. A dropped job is logged.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.queues[p.slot(job.Key)] <- job:
		return nil
	default:
		p.logger.Warn(p.ctx, job.Name+"_dropped", "Background queue full; job dropped", job.Details)
		return ErrQueueFull
	}
}

func (p *Pool) slot(key string) int {
	n := uint64(len(p.queues))
	if key == "" {
		return int(p.next.Add(1) % n)
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(uint64(h.Sum32()) % n)
}

// Close stops accepting jobs and waits for queued ones to finish. When ctx
// ends first, running jobs are cancelled and ctx.Err() is returned.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		for _, q := range p.queues {
			close(q)
		}
	}
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

func (p *Pool) work(q <-chan Job) {
	defer p.wg.Done()
	for job := range q {
		p.run(job)
	}
}

func (p *Pool) run(job Job) {
	ctx := p.ctx
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(ctx, job.Name+"_panicked", "Background job panicked", fmt.Errorf("panic: %v", r), job.Details)
		}
	}()

	if err := job.Run(ctx); err != nil {
		p.logger.Error(ctx, job.Name+"_failed", "Background job failed", err, job.Details)
	}
}
