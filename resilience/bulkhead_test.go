package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBulkhead_CapsConcurrency(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "jobs", MaxConcurrent: 2, MaxWait: time.Second})

	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.Execute(context.Background(), func() error {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
			if err != nil {
				t.Errorf("Execute: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak > 2 {
		t.Errorf("expected at most 2 concurrent holders, saw %d", peak)
	}
}

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	var rejected string
	b := NewBulkhead(BulkheadConfig{
		Name:          "jobs",
		MaxConcurrent: 1,
		OnReject:      func(name string) { rejected = name },
	})

	if !b.TryAcquire() {
		t.Fatal("Expected first TryAcquire to succeed")
	}
	defer b.Release()

	err := b.Execute(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	if rejected != "jobs" {
		t.Errorf("expected OnReject with name jobs, got %q", rejected)
	}
}

func TestBulkhead_WaitTimeout(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})
	b.TryAcquire()
	defer b.Release()

	err := b.Execute(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected ErrBulkheadTimeout, got %v", err)
	}
}

func TestBulkhead_AcquireWaitsForRelease(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := b.Acquire(context.Background()); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("Second Acquire should block while the slot is held")
	case <-time.After(20 * time.Millisecond):
	}

	b.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Second Acquire did not proceed after Release")
	}
	b.Release()
}

func TestBulkhead_AcquireHonoursContext(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	b.TryAcquire()
	defer b.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := b.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestBulkhead_Counters(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 3})
	if b.MaxConcurrent() != 3 || b.Available() != 3 || b.InUse() != 0 {
		t.Fatalf("unexpected initial counters: max=%d avail=%d inuse=%d", b.MaxConcurrent(), b.Available(), b.InUse())
	}
	b.TryAcquire()
	b.TryAcquire()
	if b.Available() != 1 || b.InUse() != 2 {
		t.Errorf("expected avail=1 inuse=2, got avail=%d inuse=%d", b.Available(), b.InUse())
	}
	b.Release()
	b.Release()

	if NewBulkhead(BulkheadConfig{}).MaxConcurrent() != 1 {
		t.Error("Expected zero MaxConcurrent to default to 1")
	}
}

func TestExecuteWithResult(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	got, err := ExecuteWithResult(b, context.Background(), func() (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Errorf("expected ok, got %q err=%v", got, err)
	}
}
