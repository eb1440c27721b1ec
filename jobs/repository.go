package jobs

import (
	"context"
	"errors"
	"fmt"
)

// ErrTerminal is returned when an update targets a completed or failed job.
var ErrTerminal = errors.New("job is in a terminal state")

// ErrNotFound is returned by Update when the job does not exist.
var ErrNotFound = errors.New("job not found")

// ErrSkip may be returned by an update function to leave the job unchanged.
// Update then returns the current job and a nil error.
var ErrSkip = errors.New("skip update")

// UpdateFunc mutates a copy of the stored job.
type UpdateFunc func(*Job) error

// Repository persists jobs.
//
// Implementations apply Update atomically per job and refuse to mutate
// terminal jobs. Reset is the single path from failed back to pending.
type Repository interface {
	// Create stores a new job.
	Create(ctx context.Context, job *Job) error

	// Get returns a copy of the job, or (nil, nil) when it does not exist.
	Get(ctx context.Context, id string) (*Job, error)

	// Update applies fn to the job and stores the result.
	Update(ctx context.Context, id string, fn UpdateFunc) (*Job, error)

	// Reset moves a failed job back to pending with its outcome cleared.
	// It returns (nil, nil) when the job is missing or not failed.
	Reset(ctx context.Context, id string) (*Job, error)

	// ListByStatus returns jobs in the given status, oldest first.
	ListByStatus(ctx context.Context, status Status) ([]*Job, error)
}

// ApplyUpdate runs fn against a copy of current and validates the result.
// Repositories call it inside their per-job critical section.
func ApplyUpdate(current *Job, fn UpdateFunc) (*Job, error) {
	if current.Status.Terminal() {
		return nil, fmt.Errorf("update job %s: %w", current.ID, ErrTerminal)
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	if !transitionAllowed(current.Status, next.Status) {
		return nil, fmt.Errorf("update job %s: invalid transition %s -> %s", current.ID, current.Status, next.Status)
	}
	if err := next.Check(); err != nil {
		return nil, err
	}
	return next, nil
}

// ApplyReset returns the reset copy of current, or nil when current is not failed.
func ApplyReset(current *Job) *Job {
	if current.Status != StatusFailed {
		return nil
	}
	next := current.Clone()
	resetForRetry(next)
	return next
}
