// Package memory is an in-process cache.Store with TTL expiry and
// size-bounded LRU eviction.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/kbukum/yttext/cache"
	"github.com/kbukum/yttext/logger"
)

// Store keeps entries in a map indexed into a recency list.
// The front of the list is the most recently accessed entry.
type Store struct {
	ttl   time.Duration
	limit int64
	now   func() time.Time
	log   *logger.Logger

	mu     sync.Mutex
	items  map[string]*list.Element
	order  *list.List
	volume int64
	stats  cache.Counters
}

var _ cache.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New creates a Store from cfg.
func New(cfg cache.Config, opts ...Option) *Store {
	cfg.ApplyDefaults()
	s := &Store{
		ttl:   cfg.TTL,
		limit: cfg.SizeLimit,
		now:   time.Now,
		items: make(map[string]*list.Element),
		order: list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get("cache")
	}
	return s
}

// Get returns a copy of the entry for (url, model) and marks it most recently used.
func (s *Store) Get(_ context.Context, url, model string) (*cache.Entry, error) {
	key := cache.Key(url, model)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		s.stats.Miss()
		return nil, nil
	}
	entry := el.Value.(*cache.Entry)
	if !entry.Valid() || entry.Expired(s.ttl, now) {
		s.removeElement(el)
		s.stats.Miss()
		return nil, nil
	}

	entry.LastAccess = now
	s.order.MoveToFront(el)
	s.stats.Hit()

	out := *entry
	return &out, nil
}

// Set stores result and evicts least recently used entries over the size limit.
func (s *Store) Set(_ context.Context, url, model string, result cache.Result) error {
	entry := cache.NewEntry(url, model, result, s.now())
	if !entry.Valid() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[entry.Key]; ok {
		s.removeElement(el)
	}
	s.items[entry.Key] = s.order.PushFront(entry)
	s.volume += entry.Size

	if evicted := s.evict(); evicted > 0 {
		s.log.Debug("Evicted cache entries", logger.Fields("evicted", evicted, "volume", s.volume))
	}
	return nil
}

// InvalidateURL removes all entries recorded for url.
func (s *Store) InvalidateURL(_ context.Context, url string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*cache.Entry).URL == url {
			s.removeElement(el)
			removed++
		}
		el = next
	}
	return removed, nil
}

// Stats reports entry count, volume and hit counters.
func (s *Store) Stats(_ context.Context) (cache.Stats, error) {
	s.mu.Lock()
	entries, volume := s.order.Len(), s.volume
	s.mu.Unlock()

	hits, misses := s.stats.Load()
	return cache.Stats{
		Enabled: true,
		Entries: entries,
		Volume:  volume,
		Hits:    hits,
		Misses:  misses,
	}, nil
}

// Clear drops every entry and resets the counters.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*list.Element)
	s.order.Init()
	s.volume = 0
	s.stats.Reset()
	return nil
}

// Prune removes expired entries.
func (s *Store) Prune(_ context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for el := s.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*cache.Entry).Expired(s.ttl, now) {
			s.removeElement(el)
			removed++
		}
		el = prev
	}
	return removed, nil
}

// evict drops entries from the back of the list until the volume fits.
// The front entry is never evicted, so a single oversized entry stays.
func (s *Store) evict() int {
	evicted := 0
	for s.volume > s.limit && s.order.Len() > 1 {
		s.removeElement(s.order.Back())
		evicted++
	}
	return evicted
}

func (s *Store) removeElement(el *list.Element) {
	entry := s.order.Remove(el).(*cache.Entry)
	delete(s.items, entry.Key)
	s.volume -= entry.Size
}
