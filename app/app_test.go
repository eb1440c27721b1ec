package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/yttext/bootstrap"
	"github.com/kbukum/yttext/cache"
	"github.com/kbukum/yttext/config"
	"github.com/kbukum/yttext/download"
	"github.com/kbukum/yttext/jobs"
	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/server"
	"github.com/kbukum/yttext/storage"
	"github.com/kbukum/yttext/testutil"
	"github.com/kbukum/yttext/transcription"
)

const videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type fakeDownloader struct {
	dir   string
	calls atomic.Int32
}

func (f *fakeDownloader) IsSupportedURL(rawURL string) bool {
	return strings.HasPrefix(rawURL, "https://")
}

func (f *fakeDownloader) DownloadAudio(_ context.Context, _ string, progress func(int)) (*download.Audio, error) {
	f.calls.Add(1)
	if progress != nil {
		progress(50)
		progress(100)
	}
	path := filepath.Join(f.dir, fmt.Sprintf("audio-%d.wav", f.calls.Load()))
	if err := os.WriteFile(path, []byte("RIFF"), 0o600); err != nil {
		return nil, err
	}
	return &download.Audio{Path: path, Title: "Test Video", DurationSeconds: 12, SizeBytes: 4}, nil
}

func (f *fakeDownloader) Cleanup(path string) error { return os.Remove(path) }

type fakeBackend struct{ calls atomic.Int32 }

func (f *fakeBackend) Name() string                     { return "fake" }
func (f *fakeBackend) Priority() int                    { return 1 }
func (f *fakeBackend) IsAvailable(context.Context) bool { return true }
func (f *fakeBackend) Close(context.Context) error      { return nil }
func (f *fakeBackend) SupportsLanguage(string) bool     { return true }
func (f *fakeBackend) SupportedLanguages() []string     { return []string{transcription.AutoLanguage} }
func (f *fakeBackend) SupportedModels() []string        { return transcription.StandardModels }

func (f *fakeBackend) SupportsModel(model string) bool {
	return transcription.ContainsModel(transcription.StandardModels, model)
}

func (f *fakeBackend) Transcribe(_ context.Context, req transcription.Request) (*transcription.Result, error) {
	f.calls.Add(1)
	req.Report(100)
	return &transcription.Result{Text: "never gonna give you up", Language: "en", ModelUsed: req.Model}, nil
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := Default()
	cfg.Environment = "development"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = server.EphemeralPort
	cfg.Transcription.Backends = []string{"openai"}
	return &cfg
}

func newTestApp(t *testing.T, cfg *Config) (*App, *fakeDownloader, *fakeBackend) {
	t.Helper()
	dl := &fakeDownloader{dir: t.TempDir()}
	backend := &fakeBackend{}
	registry := transcription.NewRegistry(context.Background(), []transcription.Backend{backend})

	a, err := New(context.Background(), cfg,
		WithDownloader(dl),
		WithBackends(registry),
		WithBootstrapOptions(bootstrap.WithLogger(logger.Nop()), bootstrap.WithoutSummary()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, dl, backend
}

func TestConfigDefaults(t *testing.T) {
	cfg := Default()
	cfg.ApplyDefaults()

	if cfg.Name != ServiceName || cfg.Environment != "development" {
		t.Errorf("service = %q/%q", cfg.Name, cfg.Environment)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Backend != cache.BackendMemory || cfg.Cache.TTL != cache.DefaultTTL {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Download.MaxDurationSeconds != 14400 || cfg.Download.MaxFileSize != 2<<30 {
		t.Errorf("download policy = %+v", cfg.Download.Policy)
	}
	if cfg.Jobs.MaxConcurrentJobs != 3 || cfg.Jobs.QueueSize != 100 {
		t.Errorf("jobs = %+v", cfg.Jobs)
	}
	if strings.Join(cfg.Transcription.Backends, ",") != "whisper_cpp,mlx,openai,whisper" {
		t.Errorf("backends = %v", cfg.Transcription.Backends)
	}
	if cfg.Server.Port != 8000 || cfg.Storage.Enabled || cfg.Database.Enabled || cfg.Redis.Enabled {
		t.Errorf("unexpected defaults: port=%d storage=%v db=%v redis=%v",
			cfg.Server.Port, cfg.Storage.Enabled, cfg.Database.Enabled, cfg.Redis.Enabled)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad environment", func(c *Config) { c.Environment = "qa" }, "config.environment"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"unknown backend", func(c *Config) { c.Transcription.Backends = []string{"nope"} }, "unknown backend"},
		{"negative keep alive", func(c *Config) { c.API.KeepAlive = -time.Second }, "api: keep_alive"},
		{"redis cache without redis", func(c *Config) { c.Cache.Backend = cache.BackendRedis }, "requires redis.enabled"},
		{"redis cache with redis", func(c *Config) {
			c.Cache.Backend = cache.BackendRedis
			c.Redis.Enabled = true
		}, ""},
		{"database log level", func(c *Config) {
			c.Database.Enabled = true
			c.Database.LogLevel = "loud"
		}, "database:"},
		{"unknown storage provider", func(c *Config) {
			c.Storage.Enabled = true
			c.Storage.Provider = "ftp"
		}, "unsupported provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("unexpected error: %v", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Errorf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigKeepsDefaultsUnderEnv(t *testing.T) {
	t.Setenv("YTTEXT_SERVER_PORT", "9001")
	t.Setenv("YTTEXT_CACHE_TTL", "1h")

	cfg := Default()
	if err := config.LoadConfig(ServiceName, &cfg, config.WithEnvFile(filepath.Join(t.TempDir(), "none.env"))); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.ApplyDefaults()

	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("ttl = %s", cfg.Cache.TTL)
	}
	if !cfg.Cache.Enabled {
		t.Error("Cache should stay enabled when the env does not mention it")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Jobs.MaxConcurrentJobs = -1
	cfg.Server.Port = 70000
	if _, err := New(context.Background(), cfg, WithBootstrapOptions(bootstrap.WithLogger(logger.Nop()))); err == nil {
		t.Fatal("Expected validation error")
	}
}

func TestServeTranscribesOverHTTP(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Enabled = true
	cfg.Database.DSN = filepath.Join(t.TempDir(), "jobs.db")
	cfg.Database.AutoMigrate = true
	cfg.Storage.Enabled = true
	cfg.Storage.Provider = storage.ProviderLocal
	cfg.Storage.BasePath = t.TempDir()

	a, dl, backend := newTestApp(t, cfg)

	err := a.RunTask(context.Background(), func(ctx context.Context) error {
		base := "http://" + a.Addr()

		var health map[string]any
		getJSON(t, base+"/health/ready", http.StatusOK, &health)
		if health["ready"] != true {
			t.Errorf("readiness = %v", health)
		}

		var created struct {
			JobID  string `json:"job_id"`
			Status string `json:"status"`
		}
		postJSON(t, base+"/api/transcribe", `{"url":"`+videoURL+`","model":"base"}`, http.StatusAccepted, &created)
		if created.JobID == "" {
			t.Fatal("Missing job id")
		}

		testutil.Eventually(t, 5*time.Second, func() bool {
			var status struct {
				Status string `json:"status"`
			}
			getJSON(t, base+"/api/jobs/"+created.JobID, http.StatusOK, &status)
			return status.Status == string(jobs.StatusCompleted)
		}, "job never completed")

		var result struct {
			Text      string `json:"text"`
			Title     string `json:"title"`
			WordCount int    `json:"word_count"`
		}
		getJSON(t, base+"/api/jobs/"+created.JobID+"/result", http.StatusOK, &result)
		if result.Text != "never gonna give you up" || result.WordCount != 5 || result.Title != "Test Video" {
			t.Errorf("result = %+v", result)
		}

		archived := filepath.Join(cfg.Storage.BasePath, storage.DefaultPrefix, created.JobID+".txt")
		testutil.Eventually(t, 2*time.Second, func() bool { return testutil.Exists(archived) }, "transcript not archived")

		// A second submission of the same URL and model is answered from the cache.
		var cached struct {
			Status string `json:"status"`
		}
		postJSON(t, base+"/api/transcribe", `{"url":"`+videoURL+`","model":"base"}`, http.StatusAccepted, &cached)
		if cached.Status != string(jobs.StatusCompleted) {
			t.Errorf("cached status = %q", cached.Status)
		}

		var stats struct {
			Enabled bool  `json:"enabled"`
			Size    int   `json:"size"`
			Hits    int64 `json:"hits"`
		}
		getJSON(t, base+"/api/cache/stats", http.StatusOK, &stats)
		if !stats.Enabled || stats.Size != 1 || stats.Hits != 1 {
			t.Errorf("stats = %+v", stats)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}
	if dl.calls.Load() != 1 || backend.calls.Load() != 1 {
		t.Errorf("downloads=%d transcriptions=%d", dl.calls.Load(), backend.calls.Load())
	}
}

func TestTaskModeUsesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()
	cfg.Cache.Backend = cache.BackendRedis

	dl := &fakeDownloader{dir: t.TempDir()}
	registry := transcription.NewRegistry(context.Background(), []transcription.Backend{&fakeBackend{}})
	a, err := New(context.Background(), cfg,
		WithoutServer(),
		WithDownloader(dl),
		WithBackends(registry),
		WithBootstrapOptions(bootstrap.WithLogger(logger.Nop()), bootstrap.WithoutSummary()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = a.RunTask(context.Background(), func(ctx context.Context) error {
		if a.Addr() != "" {
			t.Errorf("no server expected, got %s", a.Addr())
		}
		for range 2 {
			job, err := a.Jobs().CreateJob(ctx, jobs.CreateRequest{URL: videoURL, Model: "small"})
			if err != nil {
				return err
			}
			var last jobs.Job
			for update := range a.Jobs().StreamJobUpdates(ctx, job.ID) {
				last = update
			}
			if last.Status != jobs.StatusCompleted {
				return fmt.Errorf("job %s ended %s: %s", job.ID, last.Status, last.Error)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}
	if dl.calls.Load() != 1 {
		t.Errorf("expected the second job to hit the redis cache, downloads=%d", dl.calls.Load())
	}
	if len(mr.Keys()) == 0 {
		t.Error("Expected cache keys in redis")
	}
}

func getJSON(t *testing.T, url string, want int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	decode(t, resp, want, out)
}

func postJSON(t *testing.T, url, body string, want int, out any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	decode(t, resp, want, out)
}

func decode(t *testing.T, resp *http.Response, want int, out any) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status %d, want %d", resp.Request.Method, resp.Request.URL, resp.StatusCode, want)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
}
