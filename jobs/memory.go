package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepository keeps jobs in process.
type MemoryRepository struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{jobs: make(map[string]*Job)}
}

// Create stores a copy of job.
func (r *MemoryRepository) Create(_ context.Context, job *Job) error {
	if err := job.Check(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	r.jobs[job.ID] = job.Clone()
	return nil
}

// Get returns a copy of the job.
func (r *MemoryRepository) Get(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[id].Clone(), nil
}

// Update applies fn under the repository lock.
func (r *MemoryRepository) Update(_ context.Context, id string, fn UpdateFunc) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("update job %s: %w", id, ErrNotFound)
	}
	next, err := ApplyUpdate(current, fn)
	if err != nil {
		if errors.Is(err, ErrSkip) {
			return current.Clone(), nil
		}
		return nil, err
	}
	r.jobs[id] = next
	return next.Clone(), nil
}

// Reset clears a failed job back to pending.
func (r *MemoryRepository) Reset(_ context.Context, id string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	next := ApplyReset(current)
	if next == nil {
		return nil, nil
	}
	r.jobs[id] = next
	return next.Clone(), nil
}

// ListByStatus returns matching jobs ordered by creation time.
func (r *MemoryRepository) ListByStatus(_ context.Context, status Status) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Job
	for _, j := range r.jobs {
		if j.Status == status {
			out = append(out, j.Clone())
		}
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	return out, nil
}
