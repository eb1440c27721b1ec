// Package mlx runs transcriptions through the mlx_whisper CLI on Apple silicon.
package mlx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kbukum/yttext/process"
	"github.com/kbukum/yttext/transcription"
	"github.com/kbukum/yttext/transcription/modelcache"
)

// Name is the registered backend name.
const Name = "mlx"

const (
	defaultPriority = 5
	defaultBinary   = "mlx_whisper"
	defaultRepo     = "mlx-community/whisper-%s-mlx"
)

func init() {
	transcription.Factories.RegisterFactory(Name, Factory)
}

// Config holds mlx_whisper settings.
type Config struct {
	Binary   string   `mapstructure:"binary"`
	Models   []string `mapstructure:"models"`
	Priority int      `mapstructure:"priority"`
	// ModelDir is searched for converted models before falling back to
	// the Hugging Face repo named by RepoFormat.
	ModelDir   string `mapstructure:"model_dir"`
	RepoFormat string `mapstructure:"repo_format"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = defaultBinary
	}
	if len(c.Models) == 0 {
		c.Models = []string{"tiny", "base", "small", "medium", "large"}
	}
	if c.Priority == 0 {
		c.Priority = defaultPriority
	}
	if c.RepoFormat == "" {
		c.RepoFormat = defaultRepo
	}
}

// Backend implements transcription.Backend on top of mlx_whisper.
type Backend struct {
	cfg    Config
	runner process.Runner
	repos  *modelcache.Cache[string]

	goos, goarch string
}

var _ transcription.Backend = (*Backend)(nil)

// New creates an mlx backend. A nil runner uses process.Default.
func New(cfg Config, runner process.Runner) *Backend {
	cfg.ApplyDefaults()
	if runner == nil {
		runner = process.Default
	}
	b := &Backend{cfg: cfg, runner: runner, goos: runtime.GOOS, goarch: runtime.GOARCH}
	b.repos = modelcache.New(b.resolveRepo)
	return b
}

// Factory builds a Backend from generic settings.
func Factory(settings map[string]any) (transcription.Backend, error) {
	var cfg Config
	if err := transcription.DecodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	return New(cfg, nil), nil
}

func (b *Backend) Name() string                 { return Name }
func (b *Backend) Priority() int                { return b.cfg.Priority }
func (b *Backend) SupportedModels() []string    { return b.cfg.Models }
func (b *Backend) SupportedLanguages() []string { return []string{transcription.AutoLanguage} }
func (b *Backend) SupportsLanguage(string) bool { return true }

func (b *Backend) SupportsModel(model string) bool {
	return transcription.ContainsModel(b.cfg.Models, model)
}

// IsAvailable is true only on darwin/arm64 with the CLI installed.
func (b *Backend) IsAvailable(_ context.Context) bool {
	if b.goos != "darwin" || b.goarch != "arm64" {
		return false
	}
	_, err := b.runner.LookPath(b.cfg.Binary)
	return err == nil
}

type output struct {
	Text     string                  `json:"text"`
	Language string                  `json:"language"`
	Segments []transcription.Segment `json:"segments"`
}

// Transcribe runs mlx_whisper and parses its JSON output.
func (b *Backend) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Result, error) {
	start := time.Now()
	req.Report(10)

	repo, err := b.repos.Get(ctx, req.Model)
	if err != nil {
		return nil, err
	}

	outDir, err := os.MkdirTemp(filepath.Dir(req.AudioPath), "mlx-*")
	if err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(outDir) }()

	args := []string{
		req.AudioPath,
		"--model", repo,
		"--output-format", "json",
		"--output-dir", outDir,
		"--verbose", "False",
	}
	if !transcription.IsAuto(req.Language) {
		args = append(args, "--language", req.Language)
	}
	req.Report(30)

	res, err := b.runner.Run(ctx, process.Command{Binary: b.cfg.Binary, Args: args})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(string(res.Stderr))
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, fmt.Errorf("mlx_whisper failed: %s", msg)
	}

	name := strings.TrimSuffix(filepath.Base(req.AudioPath), filepath.Ext(req.AudioPath)) + ".json"
	raw, err := os.ReadFile(filepath.Join(outDir, name))
	if err != nil {
		return nil, fmt.Errorf("mlx_whisper did not produce output file")
	}
	var out output
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse mlx_whisper output: %w", err)
	}
	req.Report(90)

	text := strings.TrimSpace(out.Text)
	if text == "" {
		text = transcription.JoinSegments(out.Segments)
	}
	lang := out.Language
	if lang == "" {
		lang = "unknown"
	}
	return &transcription.Result{
		Text:             text,
		Language:         lang,
		ModelUsed:        "mlx-" + req.Model,
		Segments:         out.Segments,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// Close forgets resolved model locations.
func (b *Backend) Close(context.Context) error {
	b.repos.Clear()
	return nil
}

// resolveRepo prefers a converted model on disk over the hub repo id.
func (b *Backend) resolveRepo(_ context.Context, model string) (string, error) {
	if !b.SupportsModel(model) {
		return "", fmt.Errorf("Model %s not available", model)
	}
	repo := fmt.Sprintf(b.cfg.RepoFormat, model)
	if b.cfg.ModelDir != "" {
		local := filepath.Join(b.cfg.ModelDir, filepath.Base(repo))
		if info, err := os.Stat(local); err == nil && info.IsDir() {
			return local, nil
		}
	}
	return repo, nil
}
