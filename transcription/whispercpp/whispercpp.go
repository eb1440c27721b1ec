// Package whispercpp runs transcriptions through the whisper.cpp CLI.
package whispercpp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/yttext/httpclient"
	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/process"
	"github.com/kbukum/yttext/transcription"
	"github.com/kbukum/yttext/transcription/modelcache"
)

// Name is the registered backend name.
const Name = "whisper_cpp"

const (
	defaultPriority = 10
	defaultBinary   = "whisper-cli"
	defaultModelDir = "./models"
	defaultModelURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-%s.bin"
)

var (
	progressLine = regexp.MustCompile(`progress\s*=\s*(\d{1,3})%`)
	languageLine = regexp.MustCompile(`(?i)detected language:\s*([a-z]{2,3})\b`)
)

func init() {
	transcription.Factories.RegisterFactory(Name, Factory)
}

// Config holds whisper.cpp settings.
type Config struct {
	Binary       string   `mapstructure:"binary"`
	ModelDir     string   `mapstructure:"model_dir"`
	Models       []string `mapstructure:"models"`
	Threads      int      `mapstructure:"threads"`
	Priority     int      `mapstructure:"priority"`
	AutoDownload bool     `mapstructure:"auto_download"`
	// ModelURL is a format string taking the model id.
	ModelURL string `mapstructure:"model_url"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = defaultBinary
	}
	if c.ModelDir == "" {
		c.ModelDir = defaultModelDir
	}
	if len(c.Models) == 0 {
		c.Models = transcription.StandardModels
	}
	if c.Priority == 0 {
		c.Priority = defaultPriority
	}
	if c.ModelURL == "" {
		c.ModelURL = defaultModelURL
	}
}

// Backend implements transcription.Backend on top of whisper.cpp.
type Backend struct {
	cfg    Config
	runner process.Runner
	models *modelcache.Cache[string]
	http   *httpclient.Client
	log    *logger.Logger
}

var _ transcription.Backend = (*Backend)(nil)

// New creates a whisper.cpp backend. A nil runner uses process.Default.
func New(cfg Config, runner process.Runner) (*Backend, error) {
	cfg.ApplyDefaults()
	if runner == nil {
		runner = process.Default
	}
	b := &Backend{cfg: cfg, runner: runner, log: logger.Get("transcription").WithFields(logger.Fields(logger.FieldBackend, Name))}
	if cfg.AutoDownload {
		client, err := httpclient.New(httpclient.Config{})
		if err != nil {
			return nil, err
		}
		b.http = client
	}
	b.models = modelcache.New(b.resolveModel)
	return b, nil
}

// Factory builds a Backend from generic settings.
func Factory(settings map[string]any) (transcription.Backend, error) {
	var cfg Config
	if err := transcription.DecodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	return New(cfg, nil)
}

func (b *Backend) Name() string                      { return Name }
func (b *Backend) Priority() int                     { return b.cfg.Priority }
func (b *Backend) SupportedModels() []string         { return b.cfg.Models }
func (b *Backend) SupportedLanguages() []string      { return []string{transcription.AutoLanguage} }
func (b *Backend) SupportsLanguage(lang string) bool { return true }

func (b *Backend) SupportsModel(model string) bool {
	return transcription.ContainsModel(b.cfg.Models, model)
}

// IsAvailable reports whether the binary is installed and at least one
// model can be used.
func (b *Backend) IsAvailable(_ context.Context) bool {
	if _, err := b.runner.LookPath(b.cfg.Binary); err != nil {
		return false
	}
	if b.cfg.AutoDownload {
		return true
	}
	for _, m := range b.cfg.Models {
		if fileExists(b.modelPath(m)) {
			return true
		}
	}
	return false
}

// Transcribe runs whisper.cpp on the audio file and reads its text output.
func (b *Backend) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Result, error) {
	start := time.Now()
	req.Report(10)

	modelPath, err := b.models.Get(ctx, req.Model)
	if err != nil {
		return nil, err
	}
	req.Report(20)

	outBase := strings.TrimSuffix(req.AudioPath, filepath.Ext(req.AudioPath))
	args := []string{
		"-m", modelPath,
		"-f", req.AudioPath,
		"--output-txt",
		"--output-file", outBase,
		"--print-progress",
	}
	if !transcription.IsAuto(req.Language) {
		args = append(args, "-l", req.Language)
	}
	if b.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(b.cfg.Threads))
	}
	req.Report(30)

	var detected string
	res, err := b.runner.Run(ctx, process.Command{
		Binary: b.cfg.Binary,
		Args:   args,
		OnStderr: func(line string) {
			if m := progressLine.FindStringSubmatch(line); m != nil {
				pct, _ := strconv.Atoi(m[1])
				req.Report(30 + min(pct, 100)/2)
			}
			if m := languageLine.FindStringSubmatch(line); m != nil {
				detected = strings.ToLower(m[1])
			}
		},
	})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(string(res.Stderr))
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, fmt.Errorf("whisper.cpp failed: %s", msg)
	}
	req.Report(80)

	outFile := outBase + ".txt"
	raw, err := os.ReadFile(outFile)
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp did not produce output file")
	}
	_ = os.Remove(outFile)
	req.Report(90)

	lang := detected
	if lang == "" && !transcription.IsAuto(req.Language) {
		lang = req.Language
	}
	if lang == "" {
		lang = "unknown"
	}

	return &transcription.Result{
		Text:             strings.TrimSpace(string(raw)),
		Language:         lang,
		ModelUsed:        "whisper.cpp-" + req.Model,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// Close forgets resolved models.
func (b *Backend) Close(context.Context) error {
	b.models.Clear()
	return nil
}

func (b *Backend) modelPath(model string) string {
	return filepath.Join(b.cfg.ModelDir, "ggml-"+model+".bin")
}

// resolveModel finds the model file, downloading it once when enabled.
func (b *Backend) resolveModel(ctx context.Context, model string) (string, error) {
	path := b.modelPath(model)
	if fileExists(path) {
		return path, nil
	}
	if !b.cfg.AutoDownload || !b.SupportsModel(model) {
		return "", fmt.Errorf("Model %s not available", model)
	}

	url := fmt.Sprintf(b.cfg.ModelURL, model)
	b.log.Info("Downloading model", logger.Fields(logger.FieldModel, model, logger.FieldURL, url))
	if err := b.download(ctx, url, path); err != nil {
		return "", fmt.Errorf("Model %s not available: %w", model, err)
	}
	return path, nil
}

func (b *Backend) download(ctx context.Context, url, dest string) error {
	resp, err := b.http.DoStream(ctx, httpclient.Request{Method: "GET", Path: url})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".ggml-*.part")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
