package whispercpp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kbukum/yttext/process"
	"github.com/kbukum/yttext/testutil"
	"github.com/kbukum/yttext/transcription"
)

// writesTranscript scripts whisper-cli: it writes text to <output-file>.txt.
func writesTranscript(text string, stderr ...string) testutil.Handler {
	return func(cmd process.Command) (*process.Result, error) {
		testutil.EmitStderr(cmd, stderr...)
		out := testutil.ArgAfter(cmd, "--output-file") + ".txt"
		if err := os.WriteFile(out, []byte(text+"\n"), 0o600); err != nil {
			return nil, err
		}
		return testutil.Exit(0, "", strings.Join(stderr, "\n")), nil
	}
}

func newTestBackend(t *testing.T, runner *testutil.Runner, models ...string) (*Backend, string) {
	t.Helper()
	dir := t.TempDir()
	for _, m := range models {
		testutil.WriteFile(t, dir, "ggml-"+m+".bin", []byte("weights"))
	}
	b, err := New(Config{ModelDir: dir}, runner)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b, dir
}

func TestTranscribeReadsOutputAndDetectsLanguage(t *testing.T) {
	runner := testutil.NewRunner().Handle(defaultBinary, writesTranscript("hello world",
		"whisper_print_progress_callback: progress =  20%",
		"whisper_full_with_state: auto-detected language: en (p = 0.953491)",
		"whisper_print_progress_callback: progress =  90%",
	))
	b, _ := newTestBackend(t, runner, "base")
	audio := testutil.WriteFile(t, t.TempDir(), "job.wav", []byte("RIFF"))

	var mu sync.Mutex
	var progress []int
	res, err := b.Transcribe(context.Background(), transcription.Request{
		AudioPath: audio,
		Model:     "base",
		Progress: func(p int) {
			mu.Lock()
			progress = append(progress, p)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello world" || res.Language != "en" || res.ModelUsed != "whisper.cpp-base" {
		t.Errorf("unexpected result %+v", res)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Fatalf("progress went backwards: %v", progress)
		}
	}
	if progress[0] != 10 || progress[len(progress)-1] != 90 {
		t.Errorf("unexpected progress bounds %v", progress)
	}
	if testutil.Exists(strings.TrimSuffix(audio, ".wav") + ".txt") {
		t.Error("Expected output txt to be removed")
	}

	cmd := runner.Calls()[0]
	if testutil.HasArg(cmd, "-l") {
		t.Error("Auto language must not pass -l")
	}
	if !strings.HasSuffix(testutil.ArgAfter(cmd, "-m"), "ggml-base.bin") {
		t.Errorf("unexpected model arg %q", testutil.ArgAfter(cmd, "-m"))
	}
}

func TestTranscribeExplicitLanguage(t *testing.T) {
	runner := testutil.NewRunner().Handle(defaultBinary, writesTranscript("hola"))
	b, _ := newTestBackend(t, runner, "small")
	audio := testutil.WriteFile(t, t.TempDir(), "a.wav", nil)

	res, err := b.Transcribe(context.Background(), transcription.Request{AudioPath: audio, Model: "small", Language: "es"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got := testutil.ArgAfter(runner.Calls()[0], "-l"); got != "es" {
		t.Errorf("-l = %q, want es", got)
	}
	if res.Language != "es" {
		t.Errorf("language = %q, want es", res.Language)
	}
}

func TestTranscribeErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler testutil.Handler
		model   string
		wantErr string
	}{
		{
			name:    "missing model",
			handler: writesTranscript("x"),
			model:   "large",
			wantErr: "Model large not available",
		},
		{
			name: "non-zero exit",
			handler: func(process.Command) (*process.Result, error) {
				return testutil.Exit(3, "", "error: failed to read WAV file"), nil
			},
			model:   "base",
			wantErr: "whisper.cpp failed: error: failed to read WAV file",
		},
		{
			name: "no output file",
			handler: func(process.Command) (*process.Result, error) {
				return testutil.Exit(0, "", ""), nil
			},
			model:   "base",
			wantErr: "did not produce output file",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, _ := newTestBackend(t, testutil.NewRunner().Handle(defaultBinary, tc.handler), "base")
			audio := testutil.WriteFile(t, t.TempDir(), "a.wav", nil)
			_, err := b.Transcribe(context.Background(), transcription.Request{AudioPath: audio, Model: tc.model})
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestIsAvailable(t *testing.T) {
	withBinary := testutil.NewRunner().Handle(defaultBinary, writesTranscript(""))

	tests := []struct {
		name   string
		runner *testutil.Runner
		models []string
		want   bool
	}{
		{"binary and model", withBinary, []string{"tiny"}, true},
		{"no models", withBinary, nil, false},
		{"no binary", testutil.NewRunner(), []string{"tiny"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, _ := newTestBackend(t, tc.runner, tc.models...)
			if got := b.IsAvailable(context.Background()); got != tc.want {
				t.Errorf("IsAvailable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAutoDownloadLoadsModelOnce(t *testing.T) {
	var downloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		if r.URL.Path != "/ggml-tiny.bin" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("weights"))
	}))
	defer srv.Close()

	runner := testutil.NewRunner().Handle(defaultBinary, writesTranscript("ok"))
	dir := t.TempDir()
	b, err := New(Config{ModelDir: dir, AutoDownload: true, ModelURL: srv.URL + "/ggml-%s.bin"}, runner)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !b.IsAvailable(context.Background()) {
		t.Fatal("Auto-download backend should be available without local models")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			audioDir := t.TempDir()
			audio := filepath.Join(audioDir, "a.wav")
			_ = os.WriteFile(audio, nil, 0o600)
			if _, err := b.Transcribe(context.Background(), transcription.Request{AudioPath: audio, Model: "tiny"}); err != nil {
				t.Errorf("Transcribe %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if got := downloads.Load(); got != 1 {
		t.Errorf("expected one model download, got %d", got)
	}
	if !testutil.Exists(filepath.Join(dir, "ggml-tiny.bin")) {
		t.Error("Expected model file in model dir")
	}
}

func TestFactoryDecodesSettings(t *testing.T) {
	b, err := Factory(map[string]any{"binary": "whisper-cpp", "threads": "4", "priority": 7})
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	wb := b.(*Backend)
	if wb.cfg.Binary != "whisper-cpp" || wb.cfg.Threads != 4 || b.Priority() != 7 {
		t.Errorf("unexpected config %+v", wb.cfg)
	}
	if !transcription.Factories.Has(Name) {
		t.Error("Expected whisper_cpp to be registered")
	}
}
