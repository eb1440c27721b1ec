package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/yttext/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func result(text string) cache.Result {
	return cache.Result{Text: text, Title: "t", ModelUsed: "whisper.cpp-base"}
}

func entrySize(url string) int64 {
	return cache.NewEntry(url, "base", result("hello world"), newClock().Now()).Size
}

func TestGetMissAndHit(t *testing.T) {
	clock := newClock()
	s := New(cache.Config{Enabled: true}, WithClock(clock.Now))
	ctx := context.Background()

	got, err := s.Get(ctx, "https://x/video", "base")
	if err != nil || got != nil {
		t.Fatalf("expected miss, got %+v, %v", got, err)
	}

	if err := s.Set(ctx, "https://x/video", "base", result("hello world")); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Second)

	got, err = s.Get(ctx, "https://x/video", "base")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Text != "hello world" {
		t.Fatalf("expected hit, got %+v", got)
	}
	if !got.LastAccess.Equal(clock.Now()) {
		t.Errorf("LastAccess = %s, want %s", got.LastAccess, clock.Now())
	}
	if got.Key != cache.Key("https://x/video", "base") {
		t.Errorf("unexpected key %s", got.Key)
	}

	if other, _ := s.Get(ctx, "https://x/video", "small"); other != nil {
		t.Error("Different model must not share an entry")
	}

	st, _ := s.Stats(ctx)
	if st.Hits != 1 || st.Misses != 2 || st.Entries != 1 || !st.Enabled {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestSetSkipsEmptyText(t *testing.T) {
	s := New(cache.Config{Enabled: true})
	ctx := context.Background()
	for _, text := range []string{"", "   "} {
		if err := s.Set(ctx, "https://x/v", "base", result(text)); err != nil {
			t.Fatal(err)
		}
	}
	if st, _ := s.Stats(ctx); st.Entries != 0 {
		t.Errorf("expected no entries, got %d", st.Entries)
	}
}

func TestSetOverwritesCollidingKey(t *testing.T) {
	s := New(cache.Config{Enabled: true})
	ctx := context.Background()
	_ = s.Set(ctx, "https://x/v", "base", result("first"))
	_ = s.Set(ctx, "https://x/v", "base", result("second"))

	got, _ := s.Get(ctx, "https://x/v", "base")
	if got == nil || got.Text != "second" {
		t.Fatalf("expected overwrite, got %+v", got)
	}
	st, _ := s.Stats(ctx)
	if st.Entries != 1 || st.Volume != got.Size {
		t.Errorf("volume not tracked on overwrite: %+v size=%d", st, got.Size)
	}
}

func TestTTLExpiry(t *testing.T) {
	clock := newClock()
	s := New(cache.Config{Enabled: true, TTL: time.Hour}, WithClock(clock.Now))
	ctx := context.Background()
	_ = s.Set(ctx, "https://x/v", "base", result("hello"))

	clock.Advance(59 * time.Minute)
	if got, _ := s.Get(ctx, "https://x/v", "base"); got == nil {
		t.Fatal("Expected hit before ttl")
	}
	clock.Advance(2 * time.Minute)
	if got, _ := s.Get(ctx, "https://x/v", "base"); got != nil {
		t.Fatal("Expected miss after ttl")
	}
	if st, _ := s.Stats(ctx); st.Entries != 0 || st.Volume != 0 {
		t.Errorf("expired entry not removed: %+v", st)
	}
}

func TestPrune(t *testing.T) {
	clock := newClock()
	s := New(cache.Config{Enabled: true, TTL: time.Hour}, WithClock(clock.Now))
	ctx := context.Background()
	_ = s.Set(ctx, "https://x/old", "base", result("old"))
	clock.Advance(30 * time.Minute)
	_ = s.Set(ctx, "https://x/new", "base", result("new"))
	clock.Advance(45 * time.Minute)

	n, err := s.Prune(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned, got %d", n)
	}
	if got, _ := s.Get(ctx, "https://x/new", "base"); got == nil {
		t.Error("Fresh entry should survive prune")
	}
}

func TestEvictionKeepsMostRecentlyAccessed(t *testing.T) {
	clock := newClock()
	size := entrySize("https://x/a")
	s := New(cache.Config{Enabled: true, SizeLimit: 3 * size}, WithClock(clock.Now))
	ctx := context.Background()

	for _, u := range []string{"https://x/a", "https://x/b", "https://x/c"} {
		_ = s.Set(ctx, u, "base", result("hello world"))
		clock.Advance(time.Second)
	}
	// a becomes the most recently accessed entry.
	if got, _ := s.Get(ctx, "https://x/a", "base"); got == nil {
		t.Fatal("Expected a to be cached")
	}
	clock.Advance(time.Second)

	_ = s.Set(ctx, "https://x/d", "base", result("hello world"))

	if got, _ := s.Get(ctx, "https://x/b", "base"); got != nil {
		t.Error("Expected least recently accessed entry b to be evicted")
	}
	for _, u := range []string{"https://x/a", "https://x/c", "https://x/d"} {
		if got, _ := s.Get(ctx, u, "base"); got == nil {
			t.Errorf("expected %s to survive eviction", u)
		}
	}
	if st, _ := s.Stats(ctx); st.Volume > 3*size {
		t.Errorf("volume %d exceeds limit %d", st.Volume, 3*size)
	}
}

func TestEvictionUnderPressure(t *testing.T) {
	clock := newClock()
	size := entrySize("https://x/0")
	s := New(cache.Config{Enabled: true, SizeLimit: 2 * size}, WithClock(clock.Now))
	ctx := context.Background()

	for i := range 10 {
		u := fmt.Sprintf("https://x/%d", i)
		_ = s.Set(ctx, u, "base", result("hello world"))
		clock.Advance(time.Second)
		if got, _ := s.Get(ctx, u, "base"); got == nil {
			t.Fatalf("most recent entry %s was evicted", u)
		}
		st, _ := s.Stats(ctx)
		if st.Volume > 2*size {
			t.Fatalf("volume %d exceeds limit after %d sets", st.Volume, i+1)
		}
	}
}

func TestOversizedEntryIsKept(t *testing.T) {
	s := New(cache.Config{Enabled: true, SizeLimit: 10})
	ctx := context.Background()
	_ = s.Set(ctx, "https://x/a", "base", result("hello world"))
	if got, _ := s.Get(ctx, "https://x/a", "base"); got == nil {
		t.Fatal("Single entry larger than the limit should stay")
	}
	_ = s.Set(ctx, "https://x/b", "base", result("hello world"))
	if got, _ := s.Get(ctx, "https://x/a", "base"); got != nil {
		t.Error("Older entry should be evicted once another arrives")
	}
}

func TestInvalidateURL(t *testing.T) {
	s := New(cache.Config{Enabled: true})
	ctx := context.Background()
	for _, m := range []string{"base", "small", "large"} {
		_ = s.Set(ctx, "https://x/v", m, result("text"))
	}
	_ = s.Set(ctx, "https://x/other", "base", result("text"))

	n, err := s.InvalidateURL(ctx, "https://x/v")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 removed, got %d", n)
	}
	if st, _ := s.Stats(ctx); st.Entries != 1 {
		t.Errorf("expected 1 entry left, got %d", st.Entries)
	}
}

func TestClear(t *testing.T) {
	s := New(cache.Config{Enabled: true})
	ctx := context.Background()
	_ = s.Set(ctx, "https://x/v", "base", result("text"))
	_, _ = s.Get(ctx, "https://x/v", "base")

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	st, _ := s.Stats(ctx)
	if st.Entries != 0 || st.Volume != 0 || st.Hits != 0 {
		t.Errorf("expected empty stats, got %+v", st)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New(cache.Config{Enabled: true, SizeLimit: 4096})
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := fmt.Sprintf("https://x/%d", i%4)
			_ = s.Set(ctx, u, "base", result("hello"))
			_, _ = s.Get(ctx, u, "base")
			_, _ = s.InvalidateURL(ctx, "https://x/0")
		}(i)
	}
	wg.Wait()
	if st, _ := s.Stats(ctx); st.Volume > 4096 {
		t.Errorf("volume %d over limit", st.Volume)
	}
}
