package api

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/yttext/errors"
	"github.com/kbukum/yttext/jobs"
	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/server"
	"github.com/kbukum/yttext/util"
	"github.com/kbukum/yttext/validation"
)

func (h *Handler) createJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			appErr := apperrors.Validation("Request body too large")
			c.JSON(http.StatusRequestEntityTooLarge, appErr.ToResponse())
			return
		}
		server.RespondWithError(c, apperrors.Validation("Invalid request body").WithCause(err))
		return
	}
	req.URL = util.SanitizeString(req.URL)
	if err := validation.Validate(req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), jobs.CreateRequest{
		URL:       req.URL,
		Model:     req.Model,
		Language:  req.Language,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, newJobResponse(job))
}

func (h *Handler) getJob(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}
	server.RespondOK(c, newStatusResponse(job))
}

func (h *Handler) getResult(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}
	if job.Status != jobs.StatusCompleted {
		server.RespondWithError(c, apperrors.Conflict(fmt.Sprintf("Job is %s, not completed", job.Status)))
		return
	}
	if job.Text == "" {
		server.RespondWithError(c, apperrors.Internal(fmt.Errorf("job %s completed without text", job.ID)))
		return
	}
	server.RespondOK(c, newResultResponse(job))
}

func (h *Handler) retryJob(c *gin.Context) {
	existing, ok := h.loadJob(c)
	if !ok {
		return
	}
	job, err := h.jobs.RetryJob(c.Request.Context(), existing.ID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if job == nil {
		// Re-read so a job that changed in between reports its current state.
		if cur, err := h.jobs.GetJob(c.Request.Context(), existing.ID); err == nil && cur != nil {
			existing = cur
		}
		server.RespondWithError(c, apperrors.Conflict(fmt.Sprintf("Job is %s; only failed jobs can be retried", existing.Status)))
		return
	}
	h.log.WithContext(c.Request.Context()).Info("Retry requested", logger.Fields(logger.FieldJobID, job.ID))
	server.RespondAccepted(c, newJobResponse(job))
}

// loadJob validates the :id parameter and fetches the job, answering 400,
// 404 or 500 itself when it cannot.
func (h *Handler) loadJob(c *gin.Context) (*jobs.Job, bool) {
	id, err := validation.ValidateUUID("job_id", c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return nil, false
	}
	job, err := h.jobs.GetJob(c.Request.Context(), id.String())
	if err != nil {
		server.RespondWithError(c, err)
		return nil, false
	}
	if job == nil {
		server.RespondWithError(c, apperrors.NotFound("job", id.String()))
		return nil, false
	}
	return job, true
}
