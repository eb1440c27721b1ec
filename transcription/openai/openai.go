// Package openai transcribes audio through the OpenAI audio transcription API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kbukum/yttext/httpclient"
	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/resilience"
	"github.com/kbukum/yttext/transcription"
)

// Name is the registered backend name.
const Name = "openai"

// MaxFileSize is the API's upload limit.
const MaxFileSize = 25 * 1024 * 1024

const (
	defaultPriority   = 50
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "whisper-1"
	defaultDailyLimit = 100
	defaultTimeout    = 120 * time.Second
)

func init() {
	transcription.Factories.RegisterFactory(Name, Factory)
}

// Config holds OpenAI API settings.
type Config struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
	Priority int    `mapstructure:"priority"`
	// DailyLimit caps successful calls per UTC day. Negative disables the cap.
	DailyLimit int           `mapstructure:"daily_limit"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ApplyDefaults fills in zero-value fields. The key falls back to OPENAI_API_KEY.
func (c *Config) ApplyDefaults() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Priority == 0 {
		c.Priority = defaultPriority
	}
	if c.DailyLimit == 0 {
		c.DailyLimit = defaultDailyLimit
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Backend implements transcription.Backend against the OpenAI API.
type Backend struct {
	cfg    Config
	client *httpclient.Client
	quota  *resilience.Quota
	log    *logger.Logger
}

var _ transcription.Backend = (*Backend)(nil)

// New creates an OpenAI backend.
func New(cfg Config) (*Backend, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(httpclient.Config{
		BaseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		Timeout:        cfg.Timeout,
		Auth:           httpclient.BearerAuth(cfg.APIKey),
		Retry:          httpclient.DefaultRetryConfig(),
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(Name),
	})
	if err != nil {
		return nil, err
	}
	return &Backend{
		cfg:    cfg,
		client: client,
		quota:  resilience.NewDailyQuota(cfg.DailyLimit),
		log:    logger.Get("transcription").WithFields(logger.Fields(logger.FieldBackend, Name)),
	}, nil
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
func (b *Backend) SupportedModels() []string    { return []string{b.cfg.Model} }
func (b *Backend) SupportedLanguages() []string { return []string{transcription.AutoLanguage} }
func (b *Backend) SupportsLanguage(string) bool { return true }

// SupportsModel is always true: every local model name maps to the API model.
func (b *Backend) SupportsModel(string) bool { return true }

// IsAvailable requires a key and remaining daily quota.
func (b *Backend) IsAvailable(_ context.Context) bool {
	return b.cfg.APIKey != "" && !b.quota.Exhausted()
}

// Remaining returns the calls left today, or -1 when uncapped.
func (b *Backend) Remaining() int { return b.quota.Remaining() }

type apiResponse struct {
	Text     string                  `json:"text"`
	Language string                  `json:"language"`
	Duration float64                 `json:"duration"`
	Segments []transcription.Segment `json:"segments"`
}

// Transcribe uploads the audio file and returns the API transcript.
func (b *Backend) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Result, error) {
	start := time.Now()
	if b.cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key not configured")
	}
	if b.quota.Exhausted() {
		return nil, errors.New("Daily API limit exceeded")
	}
	req.Report(10)

	info, err := os.Stat(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, errors.New("Audio file too large for OpenAI API (25MB limit)")
	}
	req.Report(20)

	fields := map[string]string{
		"model":           b.cfg.Model,
		"response_format": "verbose_json",
	}
	if !transcription.IsAuto(req.Language) {
		fields["language"] = req.Language
	}
	body := &httpclient.MultipartBody{
		Fields: fields,
		Files: []httpclient.FileField{{
			FieldName:   "file",
			FileName:    filepath.Base(req.AudioPath),
			ContentType: "audio/wav",
			Path:        req.AudioPath,
		}},
	}
	req.Report(30)

	resp, err := b.client.Do(ctx, httpclient.Request{Method: "POST", Path: "/audio/transcriptions", Body: body})
	if err != nil {
		return nil, apiError(err)
	}
	req.Report(80)

	var out apiResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if err := b.quota.Take(); err != nil {
		b.log.Warn("Daily limit reached during request", logger.Fields("daily_limit", b.cfg.DailyLimit))
	}
	req.Report(90)

	lang := out.Language
	if lang == "" && !transcription.IsAuto(req.Language) {
		lang = req.Language
	}
	if lang == "" {
		lang = "unknown"
	}
	return &transcription.Result{
		Text:             strings.TrimSpace(out.Text),
		Language:         lang,
		ModelUsed:        "openai-" + b.cfg.Model,
		Segments:         out.Segments,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// Close is a no-op; the HTTP client holds no per-request state.
func (b *Backend) Close(context.Context) error { return nil }

func apiError(err error) error {
	var he *httpclient.Error
	if errors.As(err, &he) && he.StatusCode > 0 {
		return fmt.Errorf("OpenAI API error: %d %s", he.StatusCode, he.Message)
	}
	return fmt.Errorf("OpenAI API error: %w", err)
}
