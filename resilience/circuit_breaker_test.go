package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

var errBackend = errors.New("backend 503")

func newTestBreaker(maxFailures int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "openai",
		MaxFailures: maxFailures,
		Timeout:     10 * time.Second,
	})
	cb.now = clock.Now
	return cb, clock
}

func fail() error    { return errBackend }
func succeed() error { return nil }

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(3)
	if cb.State() != StateClosed {
		t.Fatalf("expected closed, got %s", cb.State())
	}

	for i := 0; i < 3; i++ {
		if err := cb.Execute(fail); !errors.Is(err, errBackend) {
			t.Fatalf("call %d: expected backend error, got %v", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open after 3 failures, got %s", cb.State())
	}

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("expected fast failure without calling fn, err=%v called=%v", err, called)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(3)
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	_ = cb.Execute(succeed)
	if cb.Failures() != 0 {
		t.Errorf("expected failures reset, got %d", cb.Failures())
	}
	_ = cb.Execute(fail)
	if cb.State() != StateClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	cb, _ := newTestBreaker(1)
	err := cb.Execute(func() error { return Permanent(errors.New("400 unsupported file")) })
	if err == nil {
		t.Fatal("Expected error to pass through")
	}
	if cb.State() != StateClosed {
		t.Errorf("permanent error should not open the breaker, state=%s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(1)
	_ = cb.Execute(fail)

	clock.Advance(10 * time.Second)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open after timeout, got %s", cb.State())
	}
	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed after successful probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(1)
	_ = cb.Execute(fail)
	clock.Advance(10 * time.Second)

	_ = cb.Execute(fail)
	if cb.State() != StateOpen {
		t.Errorf("expected reopen after failed probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_ResetAndCallbacks(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "whisper",
		MaxFailures: 1,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	_ = cb.Execute(fail)
	cb.Reset()

	want := []string{"whisper:closed->open", "whisper:open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: got %s, want %s", i, transitions[i], want[i])
		}
	}
	if cb.Name() != "whisper" {
		t.Errorf("Name() = %q", cb.Name())
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("concurrent"))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = cb.Execute(fail)
			} else {
				_ = cb.Execute(succeed)
			}
			_ = cb.State()
		}(i)
	}
	wg.Wait()
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(42):     "unknown",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
