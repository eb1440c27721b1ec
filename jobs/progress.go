package jobs

import (
	"sync"
	"sync/atomic"
)

type progressUpdate struct {
	phase Phase
	value int
}

// progressBridge decouples synchronous progress callbacks from persistence.
// Producers never block: a full buffer drops the update.
type progressBridge struct {
	ch      chan progressUpdate
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// newProgressBridge starts the single consumer that calls apply in order.
func newProgressBridge(size int, apply func(progressUpdate)) *progressBridge {
	if size <= 0 {
		size = 1
	}
	b := &progressBridge{
		ch:   make(chan progressUpdate, size),
		done: make(chan struct{}),
	}
	go func() {
		defer close(b.done)
		for u := range b.ch {
			apply(u)
		}
	}()
	return b
}

// reporter returns a callback that publishes percent values for phase.
func (b *progressBridge) reporter(phase Phase) func(int) {
	return func(p int) {
		b.publish(progressUpdate{phase: phase, value: clampPercent(p)})
	}
}

func (b *progressBridge) publish(u progressUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.ch <- u:
	default:
		b.dropped.Add(1)
	}
}

// close stops accepting updates and waits for queued ones to be applied.
func (b *progressBridge) close() {
	b.once.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.ch)
		b.mu.Unlock()
	})
	<-b.done
}

func clampPercent(p int) int {
	return max(0, min(p, 100))
}
