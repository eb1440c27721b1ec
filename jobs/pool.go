package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kbukum/yttext/component"
	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/resilience"
)

// Pool errors.
var (
	ErrQueueFull      = errors.New("job queue is full")
	ErrPoolNotRunning = errors.New("worker pool is not running")
)

// PoolConfig sizes the worker pool.
type PoolConfig struct {
	// MaxConcurrent bounds pipelines running at once.
	MaxConcurrent int
	// QueueSize bounds job ids waiting for a slot.
	QueueSize int
}

// ProcessFunc runs one job to a terminal state.
type ProcessFunc func(ctx context.Context, id string)

// PendingFunc lists ids of jobs waiting to run, oldest first.
type PendingFunc func(ctx context.Context) ([]string, error)

// Pool runs jobs by id on a bounded number of workers.
//
// Ids wait in a bounded queue and are drained as slots free up. An id is
// owned from Submit until its pipeline returns, so a job never runs twice
// concurrently. When the queue overflows, the pool refills it from the
// pending source once a worker finishes.
type Pool struct {
	cfg      PoolConfig
	process  ProcessFunc
	pending  PendingFunc
	log      *logger.Logger
	bulkhead *resilience.Bulkhead
	queue    chan string

	// beforeStart runs once per Start ahead of the pending refill.
	beforeStart func(ctx context.Context) error

	mu         sync.Mutex
	owned      map[string]struct{}
	overflowed bool

	running   atomic.Bool
	processed atomic.Int64

	// workCtx is cancelled only when Stop runs out of time.
	workCtx        context.Context
	cancelWork     context.CancelFunc
	dispatchCtx    context.Context
	cancelDispatch context.CancelFunc
	dispatched     chan struct{}
	wg             sync.WaitGroup
}

var (
	_ component.Component   = (*Pool)(nil)
	_ component.Describable = (*Pool)(nil)
)

// NewPool creates a pool that calls process for every submitted id.
// pending may be nil; then overflowed ids wait for the next Start.
func NewPool(cfg PoolConfig, process ProcessFunc, pending PendingFunc, log *logger.Logger) *Pool {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pool{
		cfg:     cfg,
		process: process,
		pending: pending,
		log:     log.WithComponent("pool"),
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "jobs",
			MaxConcurrent: cfg.MaxConcurrent,
		}),
		queue: make(chan string, cfg.QueueSize),
		owned: make(map[string]struct{}),
	}
}

// Name implements component.Component.
func (p *Pool) Name() string { return "worker-pool" }

// Start launches the dispatcher and enqueues jobs left pending by a previous run.
func (p *Pool) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return nil
	}
	p.workCtx, p.cancelWork = context.WithCancel(context.WithoutCancel(ctx))
	p.dispatchCtx, p.cancelDispatch = context.WithCancel(p.workCtx)
	p.dispatched = make(chan struct{})

	go p.dispatch()

	if p.beforeStart != nil {
		if err := p.beforeStart(ctx); err != nil {
			p.log.Warn("Job recovery failed", logger.ErrorFields("recover", err))
		}
	}
	n := p.refill(ctx)
	p.log.Info("Worker pool started", logger.Fields(
		"workers", p.cfg.MaxConcurrent,
		"queue", p.cfg.QueueSize,
		"recovered", n,
	))
	return nil
}

// Stop stops taking ids from the queue and waits for running pipelines.
// When ctx expires first the running pipelines are cancelled.
func (p *Pool) Stop(ctx context.Context) error {
	if !p.running.CompareAndSwap(true, false) {
		return nil
	}
	p.cancelDispatch()
	<-p.dispatched

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancelWork()
		p.log.Info("Worker pool stopped", logger.Fields("processed", p.processed.Load()))
		return nil
	case <-ctx.Done():
		p.cancelWork()
		<-done
		p.log.Warn("Worker pool stop deadline exceeded, running jobs cancelled")
		return fmt.Errorf("stop worker pool: %w", ctx.Err())
	}
}

// Health reports degraded while the queue is full.
func (p *Pool) Health(_ context.Context) component.Health {
	h := component.Health{Name: p.Name(), Status: component.StatusHealthy}
	switch {
	case !p.running.Load():
		h.Status = component.StatusUnhealthy
		h.Message = "not running"
	case len(p.queue) >= cap(p.queue):
		h.Status = component.StatusDegraded
		h.Message = "queue full"
	}
	return h
}

// Describe implements component.Describable.
func (p *Pool) Describe() component.Description {
	return component.Description{
		Type:    "worker",
		Details: fmt.Sprintf("workers=%d queue=%d", p.cfg.MaxConcurrent, p.cfg.QueueSize),
	}
}

// Submit queues id without blocking. Submitting an id that is already
// queued or running is a no-op.
func (p *Pool) Submit(id string) error {
	if !p.running.Load() {
		return ErrPoolNotRunning
	}

	p.mu.Lock()
	if _, ok := p.owned[id]; ok {
		p.mu.Unlock()
		return nil
	}
	select {
	case p.queue <- id:
		p.owned[id] = struct{}{}
		p.mu.Unlock()
		return nil
	default:
		p.overflowed = true
		p.mu.Unlock()
		return ErrQueueFull
	}
}

// PoolStats is a point-in-time view of the pool.
type PoolStats struct {
	Running   int   `json:"running"`
	Queued    int   `json:"queued"`
	Workers   int   `json:"workers"`
	QueueSize int   `json:"queue_size"`
	Processed int64 `json:"processed"`
}

// Stats returns current pool occupancy.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Running:   p.bulkhead.InUse(),
		Queued:    len(p.queue),
		Workers:   p.cfg.MaxConcurrent,
		QueueSize: p.cfg.QueueSize,
		Processed: p.processed.Load(),
	}
}

func (p *Pool) dispatch() {
	defer close(p.dispatched)

	for {
		var id string
		select {
		case <-p.dispatchCtx.Done():
			return
		case id = <-p.queue:
		}

		// A stop while waiting for a slot leaves the job pending for the next run.
		if err := p.bulkhead.Acquire(p.dispatchCtx); err != nil {
			p.release(id)
			return
		}

		p.wg.Add(1)
		go p.run(id)
	}
}

func (p *Pool) run(id string) {
	defer p.wg.Done()
	defer p.bulkhead.Release()
	defer p.release(id)
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Worker panic", logger.Fields(logger.FieldJobID, id, "panic", fmt.Sprint(r)))
		}
	}()

	p.process(logger.ContextWithJobID(p.workCtx, id), id)
	p.processed.Add(1)
}

// release frees id and, after an overflow, refills the queue.
func (p *Pool) release(id string) {
	p.mu.Lock()
	delete(p.owned, id)
	refill := p.overflowed
	p.overflowed = false
	p.mu.Unlock()

	if refill && p.running.Load() {
		go p.refill(p.workCtx)
	}
}

// refill submits pending jobs until the queue is full and returns how many were queued.
func (p *Pool) refill(ctx context.Context) int {
	if p.pending == nil {
		return 0
	}
	ids, err := p.pending(ctx)
	if err != nil {
		p.log.Error("List pending jobs failed", logger.ErrorFields("refill", err))
		p.mu.Lock()
		p.overflowed = true
		p.mu.Unlock()
		return 0
	}
	n := 0
	for _, id := range ids {
		if err := p.Submit(id); err != nil {
			break
		}
		n++
	}
	return n
}
