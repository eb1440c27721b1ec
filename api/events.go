package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/yttext/jobs"
	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/sse"
)

// streamEvents sends status_update events until the job is terminal, then
// one result or error event, and ends the stream.
func (h *Handler) streamEvents(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	log := h.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldJobID, job.ID))

	var client *sse.Client
	if h.hub != nil {
		// Subscribe before the seed read so no change falls in between.
		client = sse.NewClient(uuid.NewString(), sse.JobTopic(job.ID), sse.DefaultClientBuffer)
		h.hub.Register(client)
		defer h.hub.Unregister(client)

		if cur, err := h.jobs.GetJob(ctx, job.ID); err == nil && cur != nil {
			job = cur
		}
	}

	stream, err := sse.NewStream(c.Writer)
	if err != nil {
		log.Error("Event stream unavailable", logger.ErrorFields("stream", err))
		return
	}
	log.Debug("Event stream opened")
	defer log.Debug("Event stream closed")

	if client == nil {
		h.pollEvents(c, stream, job.ID)
		return
	}

	if done := h.sendSnapshot(stream, job); done {
		return
	}

	keepAlive := time.NewTicker(h.cfg.KeepAlive)
	defer keepAlive.Stop()
	poll := time.NewTicker(h.cfg.PollInterval)
	defer poll.Stop()

	lastProgress := job.Progress
	lastStatus := job.Status
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-client.Events():
			if !open {
				return
			}
			snap, ok := ev.Data.(*jobs.Job)
			if !ok || snap == nil {
				continue
			}
			lastProgress, lastStatus = snap.Progress, snap.Status
			if h.sendSnapshot(stream, snap) {
				return
			}
		case <-poll.C:
			// Covers events the hub dropped for a slow client.
			snap, err := h.jobs.GetJob(ctx, job.ID)
			if err != nil || snap == nil {
				continue
			}
			if snap.Status == lastStatus && snap.Progress == lastProgress {
				continue
			}
			lastProgress, lastStatus = snap.Progress, snap.Status
			if h.sendSnapshot(stream, snap) {
				return
			}
		case <-keepAlive.C:
			if err := stream.KeepAlive(); err != nil {
				return
			}
		}
	}
}

// pollEvents streams from the job service when no hub is wired.
func (h *Handler) pollEvents(c *gin.Context, stream *sse.Stream, id string) {
	for snap := range h.jobs.StreamJobUpdates(c.Request.Context(), id) {
		if h.sendSnapshot(stream, &snap) {
			return
		}
	}
}

// sendSnapshot writes a status update and, for terminal jobs, the final
// event. It reports whether the stream is finished.
func (h *Handler) sendSnapshot(stream *sse.Stream, job *jobs.Job) bool {
	if err := stream.Send(sse.Event{Name: sse.EventStatusUpdate, Data: newStatusResponse(job)}); err != nil {
		return true
	}
	switch job.Status {
	case jobs.StatusCompleted:
		_ = stream.Send(sse.Event{Name: sse.EventResult, Data: newResultResponse(job)})
		return true
	case jobs.StatusFailed:
		_ = stream.Send(sse.Event{Name: sse.EventError, Data: newErrorEvent(job)})
		return true
	}
	return false
}
