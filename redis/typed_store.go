package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformed marks a stored value that no longer decodes.
var ErrMalformed = errors.New("malformed value")

// TypedStore provides typed JSON-serialized get/set operations on Redis.
type TypedStore[C any] struct {
	client    *Client
	keyPrefix string
}

// NewTypedStore creates a TypedStore backed by the given Redis client.
// All keys are prefixed with keyPrefix followed by a colon separator.
func NewTypedStore[C any](client *Client, keyPrefix string) *TypedStore[C] {
	return &TypedStore[C]{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// FullKey returns the Redis key used for key.
func (s *TypedStore[C]) FullKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return s.keyPrefix + ":" + key
}

// Load deserializes JSON from Redis. Returns (nil, nil) if key doesn't exist.
// Values that fail to decode return an error wrapping ErrMalformed.
func (s *TypedStore[C]) Load(ctx context.Context, key string) (*C, error) {
	raw, err := s.client.Get(ctx, s.FullKey(key))
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("typed store load %q: %w", key, err)
	}

	var val C
	if err := json.Unmarshal([]byte(raw), &val); err != nil {
		return nil, fmt.Errorf("typed store load %q: %w: %v", key, ErrMalformed, err)
	}
	return &val, nil
}

// Save serializes to JSON and stores with TTL. TTL of 0 means no expiration.
// It returns the encoded size in bytes.
func (s *TypedStore[C]) Save(ctx context.Context, key string, val *C, ttl time.Duration) (int, error) {
	data, err := json.Marshal(val)
	if err != nil {
		return 0, fmt.Errorf("typed store marshal %q: %w", key, err)
	}
	if err := s.client.Set(ctx, s.FullKey(key), data, ttl); err != nil {
		return 0, fmt.Errorf("typed store save %q: %w", key, err)
	}
	return len(data), nil
}

// Delete removes the key.
func (s *TypedStore[C]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.FullKey(key)); err != nil {
		return fmt.Errorf("typed store delete %q: %w", key, err)
	}
	return nil
}
