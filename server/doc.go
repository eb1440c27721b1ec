// Package server provides the HTTP server, a Gin engine wrapped in a
// lifecycle component.
//
// New applies the standard middleware (server/middleware): panic recovery,
// request ids, tracing and request metrics, request logging, CORS and a
// request body limit. The per-client rate limit is attached to individual
// routes by the api package.
//
// Probe endpoints live in server/endpoint: /health, /health/ready and
// /version.
package server
