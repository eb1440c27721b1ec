// Package rediscache is a cache.Store shared between processes through Redis.
//
// Each entry is a JSON value written with the cache TTL. A sorted set holds
// the last access time of every key and drives LRU eviction; a hash records
// per-entry sizes and a counter tracks the total volume.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/yttext/cache"
	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/redis"
)

// Store implements cache.Store on top of a redis.Client.
type Store struct {
	rdb     *goredis.Client
	entries *redis.TypedStore[cache.Entry]
	ttl     time.Duration
	limit   int64
	now     func() time.Time
	log     *logger.Logger

	lruKey    string
	sizeKey   string
	volumeKey string
	statsKey  string
}

var _ cache.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for access ordering.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New creates a Store that keeps its keys under the client's prefix.
func New(client *redis.Client, cfg cache.Config, opts ...Option) *Store {
	cfg.ApplyDefaults()
	s := &Store{
		rdb:       client.Unwrap(),
		entries:   redis.NewTypedStore[cache.Entry](client, client.Key("cache", "entry")),
		ttl:       cfg.TTL,
		limit:     cfg.SizeLimit,
		now:       time.Now,
		lruKey:    client.Key("cache", "lru"),
		sizeKey:   client.Key("cache", "size"),
		volumeKey: client.Key("cache", "volume"),
		statsKey:  client.Key("cache", "stats"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get("cache")
	}
	return s
}

// Get loads the entry for (url, model) and bumps its access time.
func (s *Store) Get(ctx context.Context, url, model string) (*cache.Entry, error) {
	key := cache.Key(url, model)
	entry, err := s.entries.Load(ctx, key)
	if err != nil && !errors.Is(err, redis.ErrMalformed) {
		return nil, err
	}

	now := s.now()
	if err != nil || entry == nil || !entry.Valid() || entry.Expired(s.ttl, now) {
		if err != nil {
			s.log.Warn("Dropping malformed cache entry", logger.Fields(logger.FieldURL, url, logger.FieldModel, model))
		}
		if rmErr := s.remove(ctx, key); rmErr != nil {
			return nil, rmErr
		}
		s.count(ctx, "misses")
		return nil, nil
	}

	if err := s.rdb.ZAdd(ctx, s.lruKey, goredis.Z{Score: score(now), Member: key}).Err(); err != nil {
		return nil, fmt.Errorf("cache touch: %w", err)
	}
	s.count(ctx, "hits")
	entry.LastAccess = now
	return entry, nil
}

// Set writes result with the cache TTL and evicts down to the size limit.
func (s *Store) Set(ctx context.Context, url, model string, result cache.Result) error {
	now := s.now()
	entry := cache.NewEntry(url, model, result, now)
	if !entry.Valid() {
		return nil
	}

	prev, err := s.size(ctx, entry.Key)
	if err != nil {
		return err
	}
	n, err := s.entries.Save(ctx, entry.Key, entry, s.ttl)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, s.sizeKey, entry.Key, n)
		pipe.IncrBy(ctx, s.volumeKey, int64(n)-prev)
		pipe.ZAdd(ctx, s.lruKey, goredis.Z{Score: score(now), Member: entry.Key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache index: %w", err)
	}

	evicted, err := s.evict(ctx)
	if evicted > 0 {
		s.log.Debug("Evicted cache entries", logger.Fields("evicted", evicted))
	}
	return err
}

// InvalidateURL scans every indexed entry and removes those recorded for url.
func (s *Store) InvalidateURL(ctx context.Context, url string) (int, error) {
	keys, err := s.rdb.ZRange(ctx, s.lruKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("cache scan: %w", err)
	}

	removed := 0
	for _, key := range keys {
		entry, err := s.entries.Load(ctx, key)
		if err != nil && !errors.Is(err, redis.ErrMalformed) {
			return removed, err
		}
		switch {
		case entry == nil:
			// expired or malformed; drop it from the index either way
			if err := s.remove(ctx, key); err != nil {
				return removed, err
			}
		case entry.URL == url:
			if err := s.remove(ctx, key); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// Stats reports indexed entries, volume and the shared hit counters.
func (s *Store) Stats(ctx context.Context) (cache.Stats, error) {
	entries, err := s.rdb.ZCard(ctx, s.lruKey).Result()
	if err != nil {
		return cache.Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	volume, err := readInt(s.rdb.Get(ctx, s.volumeKey))
	if err != nil {
		return cache.Stats{}, err
	}
	counters, err := s.rdb.HGetAll(ctx, s.statsKey).Result()
	if err != nil {
		return cache.Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	hits, _ := strconv.ParseInt(counters["hits"], 10, 64)
	misses, _ := strconv.ParseInt(counters["misses"], 10, 64)

	return cache.Stats{
		Enabled: true,
		Entries: int(entries),
		Volume:  volume,
		Hits:    hits,
		Misses:  misses,
	}, nil
}

// Clear deletes every entry and all bookkeeping keys.
func (s *Store) Clear(ctx context.Context) error {
	pattern := s.entries.FullKey("*")
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("cache clear: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	batch = append(batch, s.lruKey, s.sizeKey, s.volumeKey, s.statsKey)
	if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Prune reconciles the index with entries Redis has already expired.
func (s *Store) Prune(ctx context.Context) (int, error) {
	keys, err := s.rdb.ZRange(ctx, s.lruKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}

	removed := 0
	now := s.now()
	for _, key := range keys {
		entry, err := s.entries.Load(ctx, key)
		if err != nil && !errors.Is(err, redis.ErrMalformed) {
			return removed, err
		}
		if entry != nil && entry.Valid() && !entry.Expired(s.ttl, now) {
			continue
		}
		if err := s.remove(ctx, key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// evict removes the oldest indexed entries while the volume is over the limit.
// The newest entry always stays.
func (s *Store) evict(ctx context.Context) (int, error) {
	evicted := 0
	for {
		volume, err := readInt(s.rdb.Get(ctx, s.volumeKey))
		if err != nil {
			return evicted, err
		}
		if volume <= s.limit {
			return evicted, nil
		}
		count, err := s.rdb.ZCard(ctx, s.lruKey).Result()
		if err != nil {
			return evicted, fmt.Errorf("cache evict: %w", err)
		}
		if count <= 1 {
			return evicted, nil
		}
		oldest, err := s.rdb.ZRange(ctx, s.lruKey, 0, 0).Result()
		if err != nil {
			return evicted, fmt.Errorf("cache evict: %w", err)
		}
		if len(oldest) == 0 {
			return evicted, nil
		}
		if err := s.remove(ctx, oldest[0]); err != nil {
			return evicted, err
		}
		evicted++
	}
}

// remove deletes an entry and its index, size and volume bookkeeping.
func (s *Store) remove(ctx context.Context, key string) error {
	size, err := s.size(ctx, key)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.entries.FullKey(key))
		pipe.ZRem(ctx, s.lruKey, key)
		pipe.HDel(ctx, s.sizeKey, key)
		if size > 0 {
			pipe.DecrBy(ctx, s.volumeKey, size)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache remove: %w", err)
	}
	return nil
}

func (s *Store) size(ctx context.Context, key string) (int64, error) {
	return readInt(s.rdb.HGet(ctx, s.sizeKey, key))
}

func readInt(cmd *goredis.StringCmd) (int64, error) {
	v, err := cmd.Int64()
	if err != nil {
		if redis.IsNil(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache read: %w", err)
	}
	return v, nil
}

func (s *Store) count(ctx context.Context, field string) {
	if err := s.rdb.HIncrBy(ctx, s.statsKey, field, 1).Err(); err != nil {
		s.log.Warn("Cache counter update failed", logger.ErrorFields("count", err))
	}
}

func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}
