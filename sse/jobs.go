package sse

import "github.com/kbukum/yttext/jobs"

// Job event names.
const (
	EventStatusUpdate = "status_update"
	EventResult       = "result"
	EventError        = "error"
)

// JobTopic is the topic job snapshots are published on.
func JobTopic(id string) string { return "job:" + id }

// JobNotifier publishes every job change as a status_update event.
type JobNotifier struct {
	pub Publisher
}

// NewJobNotifier creates a jobs.Notifier over pub.
func NewJobNotifier(pub Publisher) *JobNotifier {
	return &JobNotifier{pub: pub}
}

// Notify implements jobs.Notifier.
func (n *JobNotifier) Notify(job jobs.Job) {
	n.pub.Publish(JobTopic(job.ID), Event{Name: EventStatusUpdate, Data: job.Clone()})
}

var _ jobs.Notifier = (*JobNotifier)(nil)
