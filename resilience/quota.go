package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrQuotaExhausted is returned by Quota.Take once the window's allowance is spent.
var ErrQuotaExhausted = errors.New("quota exhausted")

// Quota is a fixed-window usage counter, e.g. "100 calls per UTC day".
// A limit of zero or less means unlimited.
type Quota struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	start time.Time
	used  int
}

// NewDailyQuota creates a quota that resets at UTC midnight.
func NewDailyQuota(limit int) *Quota {
	return NewQuota(limit, 24*time.Hour)
}

// NewQuota creates a quota with windows aligned to multiples of window since the epoch.
func NewQuota(limit int, window time.Duration) *Quota {
	return newQuota(limit, window, time.Now)
}

func newQuota(limit int, window time.Duration, now func() time.Time) *Quota {
	q := &Quota{limit: limit, window: window, now: now}
	q.start = q.windowStart(now())
	return q
}

// Take consumes one unit or returns ErrQuotaExhausted.
func (q *Quota) Take() error {
	if q.limit <= 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	q.roll()
	if q.used >= q.limit {
		return ErrQuotaExhausted
	}
	q.used++
	return nil
}

// Remaining returns the units left in the current window, or -1 when unlimited.
func (q *Quota) Remaining() int {
	if q.limit <= 0 {
		return -1
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.roll()
	return q.limit - q.used
}

// Exhausted reports whether Take would fail right now.
func (q *Quota) Exhausted() bool {
	return q.Remaining() == 0
}

// ResetsAt returns the start of the next window.
func (q *Quota) ResetsAt() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.roll()
	return q.start.Add(q.window)
}

func (q *Quota) roll() {
	if start := q.windowStart(q.now()); start.After(q.start) {
		q.start = start
		q.used = 0
	}
}

func (q *Quota) windowStart(t time.Time) time.Time {
	return t.UTC().Truncate(q.window)
}
