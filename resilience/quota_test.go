package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestQuota_ExhaustsWithinWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	q := newQuota(2, 24*time.Hour, clock.Now)

	for i := 0; i < 2; i++ {
		if err := q.Take(); err != nil {
			t.Fatalf("take %d: %v", i, err)
		}
	}
	if err := q.Take(); !errors.Is(err, ErrQuotaExhausted) {
		t.Errorf("expected ErrQuotaExhausted, got %v", err)
	}
	if !q.Exhausted() || q.Remaining() != 0 {
		t.Errorf("expected exhausted quota, remaining=%d", q.Remaining())
	}
}

func TestQuota_ResetsAtMidnightUTC(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)}
	q := newQuota(1, 24*time.Hour, clock.Now)

	if err := q.Take(); err != nil {
		t.Fatalf("take: %v", err)
	}
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := q.ResetsAt(); !got.Equal(want) {
		t.Errorf("ResetsAt = %s, want %s", got, want)
	}

	clock.Advance(2 * time.Minute)
	if q.Remaining() != 1 {
		t.Errorf("expected quota reset after midnight, remaining=%d", q.Remaining())
	}
	if err := q.Take(); err != nil {
		t.Errorf("take after reset: %v", err)
	}
}

func TestQuota_Unlimited(t *testing.T) {
	q := NewDailyQuota(0)
	for i := 0; i < 1000; i++ {
		if err := q.Take(); err != nil {
			t.Fatalf("unlimited quota rejected take %d: %v", i, err)
		}
	}
	if q.Remaining() != -1 || q.Exhausted() {
		t.Errorf("unexpected unlimited state remaining=%d", q.Remaining())
	}
}
