// Package api exposes the transcription service over HTTP.
//
// Routes:
//
//	POST   /api/transcribe           submit a URL, 202 with the job id
//	GET    /api/jobs/:id             status and progress
//	GET    /api/jobs/:id/result      transcript of a completed job
//	POST   /api/jobs/:id/retry       requeue a failed job
//	GET    /api/jobs/:id/events      live updates as Server-Sent Events
//	GET    /api/backends             registered transcription backends
//	GET    /api/cache/stats          result cache statistics
//	DELETE /api/cache[?url=...]      clear the cache or drop one URL
//
// Errors use the body produced by errors.AppError.ToResponse.
package api
