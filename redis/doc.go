// Package redis provides a Redis client component with connection pooling,
// lifecycle management and health checks.
//
// It wraps go-redis with the service's logging and configuration
// conventions. The shared result cache (cache/rediscache) is the main user.
//
// # Typed Operations
//
// TypedStore provides JSON-serialized get/set operations under a key prefix:
//
//	store := redis.NewTypedStore[cache.Entry](client, "yttext:cache")
//	entry, err := store.Load(ctx, key) // (nil, nil) when missing
//
// # Quick Start
//
//	comp := redis.NewComponent(redis.Config{Enabled: true, Addr: "localhost:6379"}, logger.Get("redis"))
//	registry.Register(comp)
//	// after Start:
//	client := comp.Client()
package redis
