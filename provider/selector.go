package provider

import (
	"context"
	"fmt"
	"sort"
)

// ErrNoProvider is returned by selectors when nothing qualifies.
var ErrNoProvider = fmt.Errorf("no available provider found")

// Selector picks a provider from the available options.
type Selector[T Provider] interface {
	Select(ctx context.Context, providers []T) (T, error)
}

// PrioritySelector tries providers in the given name order
// and returns the first one that is available.
type PrioritySelector[T Provider] struct {
	// Priority is the ordered list of provider names to try.
	Priority []string
}

// Select returns the first available provider in priority order.
func (s *PrioritySelector[T]) Select(ctx context.Context, providers []T) (T, error) {
	byName := make(map[string]T, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	for _, name := range s.Priority {
		if p, ok := byName[name]; ok && p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, ErrNoProvider
}

// RankSelector returns the lowest-ranked provider that passes Filter.
// Providers that do not implement Prioritized rank last, in input order.
type RankSelector[T Provider] struct {
	// Filter optionally restricts candidates (e.g. by supported model).
	Filter func(T) bool
}

// Select returns the first matching provider in rank order.
// Availability is not re-checked; callers pass pre-filtered providers.
func (s *RankSelector[T]) Select(_ context.Context, providers []T) (T, error) {
	for _, p := range SortByPriority(providers) {
		if s.Filter == nil || s.Filter(p) {
			return p, nil
		}
	}
	var zero T
	return zero, ErrNoProvider
}

// SortByPriority returns a copy of providers ordered ascending by Priority.
// The sort is stable, so equal priorities keep configuration order.
func SortByPriority[T Provider](providers []T) []T {
	out := make([]T, len(providers))
	copy(out, providers)
	sort.SliceStable(out, func(i, j int) bool {
		return rankOf(out[i]) < rankOf(out[j])
	})
	return out
}

func rankOf(p any) int {
	if r, ok := p.(Prioritized); ok {
		return r.Priority()
	}
	return int(^uint(0) >> 1)
}
