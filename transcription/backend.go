package transcription

import (
	"context"
	"strings"

	"github.com/kbukum/yttext/provider"
)

// StandardModels are the whisper model sizes every local backend understands.
var StandardModels = []string{"tiny", "base", "small", "medium", "large", "large-v2", "large-v3"}

// AutoLanguage asks a backend to detect the spoken language.
const AutoLanguage = "auto"

// Backend is one speech-to-text engine.
type Backend interface {
	provider.Provider    // Name() and IsAvailable()
	provider.Prioritized // lower is preferred
	provider.Closeable   // releases loaded models and clients

	SupportsModel(model string) bool
	SupportsLanguage(lang string) bool
	SupportedModels() []string
	SupportedLanguages() []string

	// Transcribe converts the audio file into text. Implementations call
	// req.Report with their own 0-100 progress.
	Transcribe(ctx context.Context, req Request) (*Result, error)
}

// Request holds parameters for a transcription call.
type Request struct {
	// AudioPath is the path to the extracted audio file.
	AudioPath string
	// Model is the requested model size (e.g. "base").
	Model string
	// Language is an ISO code, or empty/"auto" for detection.
	Language string
	// Progress optionally receives backend progress in percent.
	Progress func(percent int)
}

// Report forwards a progress value when a callback is set.
func (r Request) Report(percent int) {
	if r.Progress != nil {
		r.Progress(percent)
	}
}

// Result holds the output of a transcription call.
type Result struct {
	Text             string    `json:"text"`
	Language         string    `json:"language,omitempty"`
	ModelUsed        string    `json:"model_used"`
	Confidence       float64   `json:"confidence,omitempty"`
	Segments         []Segment `json:"segments,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
}

// Segment represents a time-aligned portion of a transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Info describes a backend for the info and readiness endpoints.
type Info struct {
	Name               string   `json:"name"`
	Priority           int      `json:"priority"`
	SupportedModels    []string `json:"supported_models"`
	SupportedLanguages []string `json:"supported_languages"`
	Available          bool     `json:"available"`
}

// IsAuto reports whether lang requests language detection.
func IsAuto(lang string) bool {
	return lang == "" || strings.EqualFold(lang, AutoLanguage)
}

// ContainsModel reports whether model is in models.
func ContainsModel(models []string, model string) bool {
	for _, m := range models {
		if m == model {
			return true
		}
	}
	return false
}

// JoinSegments concatenates segment text the way engines print plain output.
func JoinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
