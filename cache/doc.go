// Package cache stores finished transcriptions keyed by (url, model).
//
// A Store is content addressed: Key hashes the pair so repeated requests for
// the same media and model resolve to one entry. Entries expire after a TTL
// and, once the aggregate size passes the configured limit, the least
// recently accessed entries are evicted first.
//
// Two implementations live in sub-packages:
//
//   - cache/memory keeps entries in process behind an LRU list.
//   - cache/rediscache shares entries between processes through Redis.
//
// NewNoop returns the store used when caching is disabled.
package cache
