package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateLimiter_BurstThenReject(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	var limited string
	rl := newRateLimiter(RateLimiterConfig{
		Name:    "submit",
		Rate:    1,
		Burst:   3,
		OnLimit: func(name string) { limited = name },
	}, clock.Now)

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	if rl.Allow() {
		t.Error("Request over burst should be rejected")
	}
	if limited != "submit" {
		t.Errorf("expected OnLimit(submit), got %q", limited)
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := newRateLimiter(PerMinute("submit", 60, 1), clock.Now)

	if !rl.Allow() {
		t.Fatal("First request should be allowed")
	}
	if rl.Allow() {
		t.Fatal("Second request should be rejected before refill")
	}
	clock.Advance(time.Second)
	if !rl.Allow() {
		t.Error("Request should be allowed after one second at 60 rpm")
	}
	clock.Advance(time.Hour)
	if got := rl.Tokens(); got != 1 {
		t.Errorf("tokens should cap at burst, got %v", got)
	}
}

func TestRateLimiter_Execute(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})
	if err := rl.Execute(func() error { return nil }); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if err := rl.Execute(func() error { return nil }); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})
	rl.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRateLimiter_WaitReturnsWhenRefilled(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 200, Burst: 1})
	rl.Allow()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rl.Wait(ctx); err != nil {
		t.Errorf("Wait: %v", err)
	}
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	k := NewKeyedRateLimiter(PerMinute("submit", 60, 1))
	k.now = clock.Now

	if !k.Allow("10.0.0.1") || !k.Allow("10.0.0.2") {
		t.Fatal("Each key should get its own burst")
	}
	if k.Allow("10.0.0.1") {
		t.Error("10.0.0.1 should be limited")
	}
	if k.Len() != 2 {
		t.Errorf("expected 2 tracked keys, got %d", k.Len())
	}

	clock.Advance(time.Minute)
	if removed := k.Sweep(); removed != 2 {
		t.Errorf("expected 2 idle buckets swept, got %d", removed)
	}
	if k.Len() != 0 {
		t.Errorf("expected no keys after sweep, got %d", k.Len())
	}
}
