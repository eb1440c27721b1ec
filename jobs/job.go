package jobs

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed, retry aside.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the four known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Phase is the pipeline stage of a processing job.
type Phase string

const (
	PhaseNone         Phase = ""
	PhaseDownloading  Phase = "downloading"
	PhaseTranscribing Phase = "transcribing"
	PhaseFinalizing   Phase = "finalizing"
	PhaseComplete     Phase = "complete"
)

// Job is the persisted record of one transcription request.
type Job struct {
	ID                string `json:"job_id"`
	URL               string `json:"url"`
	ModelRequested    string `json:"model_requested"`
	LanguageRequested string `json:"language_requested,omitempty"`

	Status   Status `json:"status"`
	Phase    Phase  `json:"phase,omitempty"`
	Progress int    `json:"progress"`

	Text             string  `json:"text,omitempty"`
	Title            string  `json:"title,omitempty"`
	DurationSeconds  float64 `json:"duration,omitempty"`
	WordCount        int     `json:"word_count,omitempty"`
	ModelUsed        string  `json:"model_used,omitempty"`
	DetectedLanguage string  `json:"language,omitempty"`

	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`

	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ProcessingTimeMs *int64     `json:"processing_time_ms,omitempty"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// Clone returns a deep copy of j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.StartedAt = cloneTime(j.StartedAt)
	out.CompletedAt = cloneTime(j.CompletedAt)
	if j.ProcessingTimeMs != nil {
		ms := *j.ProcessingTimeMs
		out.ProcessingTimeMs = &ms
	}
	return &out
}

// Check verifies the field invariants that hold for every stored job.
func (j *Job) Check() error {
	if !j.Status.Valid() {
		return fmt.Errorf("job %s: unknown status %q", j.ID, j.Status)
	}
	if j.Progress < 0 || j.Progress > 100 {
		return fmt.Errorf("job %s: progress %d out of range", j.ID, j.Progress)
	}
	switch j.Status {
	case StatusCompleted:
		if strings.TrimSpace(j.Text) == "" || j.CompletedAt == nil {
			return fmt.Errorf("job %s: completed job needs text and completed_at", j.ID)
		}
		if j.Error != "" {
			return fmt.Errorf("job %s: completed job cannot carry an error", j.ID)
		}
	case StatusFailed:
		if j.Error == "" || j.Text != "" {
			return fmt.Errorf("job %s: failed job needs an error and no text", j.ID)
		}
	}
	return nil
}

// CountWords returns the number of whitespace-separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// transitionAllowed enforces the status edges a regular update may take.
// The failed -> pending edge is only reachable through Repository.Reset.
func transitionAllowed(from, to Status) bool {
	if from == to {
		return !from.Terminal()
	}
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// resetForRetry clears the outcome of a failed run.
func resetForRetry(j *Job) {
	j.Status = StatusPending
	j.Phase = PhaseNone
	j.Progress = 0
	j.Error = ""
	j.ErrorCode = ""
	j.StartedAt = nil
	j.CompletedAt = nil
	j.ProcessingTimeMs = nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
