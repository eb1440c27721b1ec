// Package resilience provides the concurrency and fault-tolerance
// primitives used across the service.
//
//   - Bulkhead: the semaphore that caps concurrently running job pipelines
//   - Retry: exponential backoff for transient HTTP backend errors
//   - CircuitBreaker: fails fast when a remote backend keeps erroring
//   - RateLimiter: token bucket guarding job submission
//   - Quota: fixed-window counter for daily API allowances
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "jobs", MaxConcurrent: 3})
//	if err := bh.Acquire(ctx); err != nil { ... }
//	defer bh.Release()
package resilience
