package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/yttext/component"
	"github.com/kbukum/yttext/logger"
)

// Pruner periodically drops expired entries from a Store.
type Pruner struct {
	store    Store
	interval time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

var _ component.Component = (*Pruner)(nil)

// NewPruner creates a pruner that sweeps store every interval.
func NewPruner(store Store, interval time.Duration, log *logger.Logger) *Pruner {
	if log == nil {
		log = logger.Get("cache")
	}
	return &Pruner{store: store, interval: interval, log: log.WithComponent("cache-pruner")}
}

// Name returns the component name.
func (p *Pruner) Name() string { return "cache-pruner" }

// Start launches the sweep loop. A non-positive interval leaves it idle.
func (p *Pruner) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil || p.interval <= 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
	return nil
}

// Stop ends the sweep loop and waits for it to exit.
func (p *Pruner) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health reports the outcome of the last sweep.
func (p *Pruner) Health(_ context.Context) component.Health {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastErr != nil {
		return component.Health{Name: p.Name(), Status: component.StatusDegraded, Message: p.lastErr.Error()}
	}
	return component.Health{Name: p.Name(), Status: component.StatusHealthy}
}

// Describe returns a startup summary.
func (p *Pruner) Describe() component.Description {
	return component.Description{Type: "cache", Details: fmt.Sprintf("prune every %s", p.interval)}
}

// RunOnce performs a single sweep.
func (p *Pruner) RunOnce(ctx context.Context) (int, error) {
	n, err := p.store.Prune(ctx)

	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		p.log.Warn("Cache prune failed", logger.ErrorFields("prune", err))
		return n, err
	}
	if n > 0 {
		p.log.Info("Pruned expired cache entries", logger.Fields("removed", n))
	}
	return n, nil
}

func (p *Pruner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = p.RunOnce(ctx)
		}
	}
}
