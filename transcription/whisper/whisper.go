// Package whisper transcribes audio through a faster-whisper HTTP sidecar.
// It is the lowest-priority backend and serves as the fallback.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kbukum/yttext/httpclient"
	"github.com/kbukum/yttext/transcription"
)

const (
	// Name is the registered name for the Whisper backend.
	Name = "whisper"

	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperTimeout = 30 * time.Minute
	defaultPriority       = 100
	defaultHealthTimeout  = 3 * time.Second
)

func init() {
	transcription.Factories.RegisterFactory(Name, Factory)
}

// Config holds configuration for the Whisper sidecar backend.
type Config struct {
	URL         string        `mapstructure:"url"`
	Device      string        `mapstructure:"device"`
	ComputeType string        `mapstructure:"compute_type"`
	Priority    int           `mapstructure:"priority"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = defaultWhisperURL
	}
	if c.Timeout == 0 {
		c.Timeout = defaultWhisperTimeout
	}
	if c.Priority == 0 {
		c.Priority = defaultPriority
	}
}

// Backend implements transcription.Backend using a faster-whisper sidecar.
type Backend struct {
	cfg    Config
	client *httpclient.Client
}

var _ transcription.Backend = (*Backend)(nil)

// New creates a new Whisper sidecar backend.
func New(cfg Config) (*Backend, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(httpclient.Config{
		BaseURL:        strings.TrimRight(cfg.URL, "/"),
		Timeout:        cfg.Timeout,
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(Name),
	})
	if err != nil {
		return nil, err
	}
	return &Backend{cfg: cfg, client: client}, nil
}

// Factory builds a Backend from generic settings.
func Factory(settings map[string]any) (transcription.Backend, error) {
	var cfg Config
	if err := transcription.DecodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	return New(cfg)
}

func (b *Backend) Name() string                 { return Name }
func (b *Backend) Priority() int                { return b.cfg.Priority }
func (b *Backend) SupportedModels() []string    { return transcription.StandardModels }
func (b *Backend) SupportedLanguages() []string { return []string{transcription.AutoLanguage} }
func (b *Backend) SupportsLanguage(string) bool { return true }

func (b *Backend) SupportsModel(model string) bool {
	return transcription.ContainsModel(transcription.StandardModels, model)
}

// IsAvailable checks if the sidecar answers its health endpoint.
func (b *Backend) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultHealthTimeout)
	defer cancel()
	resp, err := b.client.DoStream(ctx, httpclient.Request{Method: "GET", Path: "/health"})
	if err != nil {
		return false
	}
	_ = resp.Close()
	return resp.StatusCode == 200
}

// Transcribe sends the audio file to the sidecar and returns the transcription.
func (b *Backend) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Result, error) {
	start := time.Now()
	req.Report(10)

	fields := map[string]string{"model": req.Model}
	if !transcription.IsAuto(req.Language) {
		fields["language"] = req.Language
	}
	if b.cfg.Device != "" {
		fields["device"] = b.cfg.Device
	}
	if b.cfg.ComputeType != "" {
		fields["compute_type"] = b.cfg.ComputeType
	}
	body := &httpclient.MultipartBody{
		Fields: fields,
		Files: []httpclient.FileField{{
			FieldName:   "audio",
			FileName:    filepath.Base(req.AudioPath),
			ContentType: "audio/wav",
			Path:        req.AudioPath,
		}},
	}
	req.Report(20)

	resp, err := b.client.Do(ctx, httpclient.Request{Method: "POST", Path: "/transcribe", Body: body})
	if err != nil {
		var he *httpclient.Error
		if errors.As(err, &he) && he.StatusCode > 0 {
			return nil, fmt.Errorf("whisper error (status %d): %s", he.StatusCode, he.Message)
		}
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	req.Report(80)

	var result whisperResponse
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}
	req.Report(90)

	out := toResult(&result)
	out.ModelUsed = "whisper-" + req.Model
	out.ProcessingTimeMs = time.Since(start).Milliseconds()
	return out, nil
}

// Close is a no-op; models live in the sidecar.
func (b *Backend) Close(context.Context) error { return nil }

// --- internal Whisper API response types ---

type whisperResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
}

type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func toResult(resp *whisperResponse) *transcription.Result {
	segments := make([]transcription.Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = transcription.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		text = transcription.JoinSegments(segments)
	}
	lang := resp.Language
	if lang == "" {
		lang = "unknown"
	}

	return &transcription.Result{
		Text:     text,
		Segments: segments,
		Language: lang,
	}
}
