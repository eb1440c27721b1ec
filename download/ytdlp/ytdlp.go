// Package ytdlp implements download.Downloader with the yt-dlp CLI.
package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/kbukum/yttext/download"
	"github.com/kbukum/yttext/errors"
	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/process"
)

const (
	defaultBinary = "yt-dlp"
	jobDirPrefix  = "job-"
	audioBase     = "audio"
)

var percentLine = regexp.MustCompile(`^\[download\]\s+(\d{1,3}(?:\.\d+)?)%`)

// Config holds yt-dlp settings.
type Config struct {
	download.Policy `yaml:",inline" mapstructure:",squash"`

	Binary string `yaml:"binary" mapstructure:"binary"`
	// TempDir holds one directory per job for extracted audio.
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
	// FFmpegLocation is passed through when ffmpeg is not on PATH.
	FFmpegLocation string `yaml:"ffmpeg_location" mapstructure:"ffmpeg_location"`
	// ExtraArgs are appended to every yt-dlp invocation (cookies, proxies).
	ExtraArgs []string `yaml:"extra_args" mapstructure:"extra_args"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = defaultBinary
	}
	if c.TempDir == "" {
		c.TempDir = filepath.Join(os.TempDir(), "yttext")
	}
}

// Downloader runs yt-dlp to probe and extract audio.
type Downloader struct {
	cfg    Config
	runner process.Runner
	log    *logger.Logger
}

var _ download.Downloader = (*Downloader)(nil)

// New creates a Downloader. A nil runner uses process.Default.
func New(cfg Config, runner process.Runner) *Downloader {
	cfg.ApplyDefaults()
	if runner == nil {
		runner = process.Default
	}
	return &Downloader{cfg: cfg, runner: runner, log: logger.Get("download")}
}

// IsSupportedURL implements download.Downloader.
func (d *Downloader) IsSupportedURL(rawURL string) bool {
	return d.cfg.Policy.AllowsURL(rawURL)
}

// Available reports whether the yt-dlp binary can be found.
func (d *Downloader) Available() bool {
	_, err := d.runner.LookPath(d.cfg.Binary)
	return err == nil
}

type probeOutput struct {
	Title          string  `json:"title"`
	Duration       float64 `json:"duration"`
	FileSize       int64   `json:"filesize"`
	FileSizeApprox float64 `json:"filesize_approx"`
	Extractor      string  `json:"extractor"`
	Uploader       string  `json:"uploader"`
	UploadDate     string  `json:"upload_date"`
	WebpageURL     string  `json:"webpage_url"`
	Description    string  `json:"description"`
	ViewCount      int64   `json:"view_count"`
}

// Probe fetches media metadata without downloading.
func (d *Downloader) Probe(ctx context.Context, rawURL string) (*download.Info, error) {
	args := append([]string{"--dump-json", "--skip-download", "--no-playlist", "--no-warnings"}, d.cfg.ExtraArgs...)
	args = append(args, rawURL)

	res, err := d.runner.Run(ctx, process.Command{Binary: d.cfg.Binary, Args: args})
	if err != nil {
		return nil, runError(ctx, err)
	}
	if res.ExitCode != 0 {
		return nil, errors.Download(stderrMessage(res.Stderr), nil)
	}

	var out probeOutput
	if err := json.Unmarshal(firstJSONLine(res.Stdout), &out); err != nil {
		return nil, errors.Download("could not parse media metadata", err)
	}
	size := out.FileSize
	if size == 0 {
		size = int64(out.FileSizeApprox)
	}
	title := out.Title
	if title == "" {
		title = "Unknown"
	}
	webpage := out.WebpageURL
	if webpage == "" {
		webpage = rawURL
	}
	return &download.Info{
		Title:           title,
		DurationSeconds: out.Duration,
		FileSize:        size,
		Extractor:       out.Extractor,
		Uploader:        out.Uploader,
		UploadDate:      out.UploadDate,
		WebpageURL:      webpage,
		Description:     out.Description,
		ViewCount:       out.ViewCount,
	}, nil
}

// DownloadAudio implements download.Downloader.
func (d *Downloader) DownloadAudio(ctx context.Context, rawURL string, progress func(int)) (*download.Audio, error) {
	report := func(p int) {
		if progress != nil {
			progress(p)
		}
	}

	info, err := d.Probe(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if err := d.cfg.Policy.Check(info); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(d.cfg.TempDir, 0o755); err != nil {
		return nil, errors.Download("could not create temp dir", err)
	}
	dir, err := os.MkdirTemp(d.cfg.TempDir, jobDirPrefix+"*")
	if err != nil {
		return nil, errors.Download("could not create temp dir", err)
	}
	ok := false
	defer func() {
		if !ok {
			_ = os.RemoveAll(dir)
		}
	}()

	args := []string{
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "wav",
		"--postprocessor-args", "ffmpeg:-ac 1 -ar 16000",
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"--output", filepath.Join(dir, audioBase+".%(ext)s"),
	}
	if d.cfg.MaxFileSize > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(d.cfg.MaxFileSize, 10))
	}
	if d.cfg.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", d.cfg.FFmpegLocation)
	}
	args = append(args, d.cfg.ExtraArgs...)
	args = append(args, rawURL)

	res, err := d.runner.Run(ctx, process.Command{
		Binary: d.cfg.Binary,
		Args:   args,
		OnStdout: func(line string) {
			if m := percentLine.FindStringSubmatch(line); m != nil {
				pct, _ := strconv.ParseFloat(m[1], 64)
				report(int(pct))
			}
		},
	})
	if err != nil {
		return nil, runError(ctx, err)
	}
	if res.ExitCode != 0 {
		return nil, errors.Download(stderrMessage(res.Stderr), nil)
	}

	path := filepath.Join(dir, audioBase+".wav")
	stat, err := os.Stat(path)
	if err != nil {
		return nil, errors.Download("Downloaded audio file not found", err)
	}
	report(100)
	ok = true

	d.log.Info("Audio downloaded", logger.Fields(
		logger.FieldURL, rawURL,
		"title", info.Title,
		"duration_s", info.DurationSeconds,
		"size_bytes", stat.Size(),
	))
	return &download.Audio{
		Path:            path,
		Title:           info.Title,
		DurationSeconds: info.DurationSeconds,
		SizeBytes:       stat.Size(),
	}, nil
}

// Cleanup removes the audio file and, when it sits in a per-job directory
// under TempDir, that directory too.
func (d *Downloader) Cleanup(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if filepath.Dir(dir) == filepath.Clean(d.cfg.TempDir) && strings.HasPrefix(filepath.Base(dir), jobDirPrefix) {
		return os.RemoveAll(dir)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// runError keeps context errors recognisable so the pipeline can report a timeout.
func runError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return errors.Download(err.Error(), err)
}

// stderrMessage picks the most useful line of yt-dlp's stderr, preferring ERROR lines.
func stderrMessage(stderr []byte) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); strings.HasPrefix(l, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(l, "ERROR:"))
		}
	}
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		return last
	}
	return "yt-dlp failed"
}

func firstJSONLine(out []byte) []byte {
	for _, line := range strings.Split(string(out), "\n") {
		if l := strings.TrimSpace(line); strings.HasPrefix(l, "{") {
			return []byte(l)
		}
	}
	return out
}

// String describes the downloader configuration for startup logs.
func (d *Downloader) String() string {
	return fmt.Sprintf("yt-dlp temp=%s max_duration=%ds max_size=%d", d.cfg.TempDir, d.cfg.MaxDurationSeconds, d.cfg.MaxFileSize)
}
