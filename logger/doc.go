// Package logger provides structured logging on top of zerolog.
//
// Loggers are scoped per component and carry request and job ids pulled
// from the context, so a single job can be followed from the HTTP handler
// through the worker pool and into the backend adapters.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("jobs")
//	log.Info("Job completed", logger.Fields("job_id", id, "duration_ms", ms))
package logger
