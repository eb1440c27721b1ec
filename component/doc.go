// Package component defines the lifecycle contract shared by the service's
// long-lived parts: the redis client, the database, the transcript archive,
// the cache pruner, the worker pool, the SSE hub and the HTTP server.
//
// A Registry starts components in registration order and stops them in
// reverse, so dependencies are registered first.
package component
