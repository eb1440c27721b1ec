package api

import (
	"time"

	"github.com/kbukum/yttext/cache"
	"github.com/kbukum/yttext/jobs"
	"github.com/kbukum/yttext/util"
)

// CreateJobRequest is the body of POST /api/transcribe.
type CreateJobRequest struct {
	URL      string `json:"url" validate:"required,url,max=2048"`
	Model    string `json:"model" validate:"omitempty,oneof=tiny base small medium large large-v2 large-v3"`
	Language string `json:"language" validate:"omitempty,max=8"`
}

// JobResponse acknowledges a submission or a retry.
type JobResponse struct {
	JobID     string      `json:"job_id"`
	Status    jobs.Status `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// StatusResponse is the progress view of a job.
type StatusResponse struct {
	JobID            string      `json:"job_id"`
	Status           jobs.Status `json:"status"`
	Phase            jobs.Phase  `json:"phase,omitempty"`
	Progress         int         `json:"progress"`
	CreatedAt        time.Time   `json:"created_at"`
	StartedAt        *time.Time  `json:"started_at"`
	CompletedAt      *time.Time  `json:"completed_at"`
	ProcessingTimeMs *int64      `json:"processing_time_ms"`
	Error            string      `json:"error,omitempty"`
	ErrorCode        string      `json:"error_code,omitempty"`
}

// ResultResponse is the transcript of a completed job.
type ResultResponse struct {
	JobID            string    `json:"job_id"`
	URL              string    `json:"url"`
	Title            string    `json:"title,omitempty"`
	Duration         float64   `json:"duration,omitempty"`
	Text             string    `json:"text"`
	ModelUsed        string    `json:"model_used"`
	WordCount        int       `json:"word_count"`
	Language         string    `json:"language"`
	CreatedAt        time.Time `json:"created_at"`
	CompletedAt      time.Time `json:"completed_at"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
}

// ErrorEvent is the final SSE event of a failed job.
type ErrorEvent struct {
	JobID     string `json:"job_id"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code,omitempty"`
}

// CacheStatsResponse adds a readable volume to cache.Stats.
type CacheStatsResponse struct {
	cache.Stats
	VolumeHuman string `json:"volume_human"`
}

const unknownLanguage = "unknown"

func newJobResponse(j *jobs.Job) JobResponse {
	return JobResponse{JobID: j.ID, Status: j.Status, CreatedAt: j.CreatedAt}
}

func newStatusResponse(j *jobs.Job) StatusResponse {
	return StatusResponse{
		JobID:            j.ID,
		Status:           j.Status,
		Phase:            j.Phase,
		Progress:         j.Progress,
		CreatedAt:        j.CreatedAt,
		StartedAt:        j.StartedAt,
		CompletedAt:      j.CompletedAt,
		ProcessingTimeMs: j.ProcessingTimeMs,
		Error:            j.Error,
		ErrorCode:        j.ErrorCode,
	}
}

// newResultResponse fills the gaps a cache-served or legacy job may have.
func newResultResponse(j *jobs.Job) ResultResponse {
	r := ResultResponse{
		JobID:       j.ID,
		URL:         j.URL,
		Title:       j.Title,
		Duration:    j.DurationSeconds,
		Text:        j.Text,
		ModelUsed:   j.ModelUsed,
		WordCount:   j.WordCount,
		Language:    j.DetectedLanguage,
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.CreatedAt,
	}
	if r.ModelUsed == "" {
		r.ModelUsed = j.ModelRequested
	}
	if r.WordCount == 0 {
		r.WordCount = jobs.CountWords(j.Text)
	}
	if r.Language == "" {
		r.Language = unknownLanguage
	}
	if j.CompletedAt != nil {
		r.CompletedAt = *j.CompletedAt
	}
	if j.ProcessingTimeMs != nil {
		r.ProcessingTimeMs = *j.ProcessingTimeMs
	}
	return r
}

func newErrorEvent(j *jobs.Job) ErrorEvent {
	return ErrorEvent{JobID: j.ID, Error: j.Error, ErrorCode: j.ErrorCode}
}

func newCacheStatsResponse(s cache.Stats) CacheStatsResponse {
	return CacheStatsResponse{Stats: s, VolumeHuman: util.FormatSize(s.Volume)}
}
