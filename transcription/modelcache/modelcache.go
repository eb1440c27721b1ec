// Package modelcache loads a model at most once per process per model id.
//
// Concurrent first requests for the same model share one load; later
// requests get the cached value. Failed loads are not cached, so the next
// request tries again.
package modelcache

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader resolves or loads a model by id.
type Loader[T any] func(ctx context.Context, model string) (T, error)

// Cache memoizes a Loader per model id.
type Cache[T any] struct {
	load   Loader[T]
	group  singleflight.Group
	mu     sync.RWMutex
	loaded map[string]T
}

// New creates a Cache around load.
func New[T any](load Loader[T]) *Cache[T] {
	return &Cache[T]{load: load, loaded: make(map[string]T)}
}

// Get returns the loaded model, loading it if needed.
//
// The load itself is detached from ctx cancellation so one impatient caller
// cannot fail the load for everyone waiting on it; ctx only bounds how long
// this caller waits.
func (c *Cache[T]) Get(ctx context.Context, model string) (T, error) {
	c.mu.RLock()
	v, ok := c.loaded[model]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	ch := c.group.DoChan(model, func() (any, error) {
		c.mu.RLock()
		v, ok := c.loaded[model]
		c.mu.RUnlock()
		if ok {
			return v, nil
		}
		v, err := c.load(context.WithoutCancel(ctx), model)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.loaded[model] = v
		c.mu.Unlock()
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Loaded returns the ids of loaded models, sorted.
func (c *Cache[T]) Loaded() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.loaded))
	for id := range c.loaded {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear forgets every loaded model and returns what was dropped.
func (c *Cache[T]) Clear() map[string]T {
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := c.loaded
	c.loaded = make(map[string]T)
	return dropped
}
