// Package sse delivers live job updates as Server-Sent Events.
//
// A Hub keeps one buffered channel per connected client and routes each
// published event to the clients whose glob pattern matches the topic.
// JobNotifier plugs the hub into the job orchestrator:
//
//	hub := sse.NewHub(log)
//	go hub.Run()
//	orch := jobs.NewOrchestrator(cfg, repo, dl, reg, jobs.WithNotifier(sse.NewJobNotifier(hub)))
//
// Stream writes events to an HTTP response; the api package combines both
// for GET /api/jobs/:id/events.
package sse
