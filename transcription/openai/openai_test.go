package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/yttext/testutil"
	"github.com/kbukum/yttext/transcription"
)

type capturedRequest struct {
	auth     string
	model    string
	language string
	format   string
	filename string
	audio    string
}

func newServer(t *testing.T, status int, body any, seen *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			seen.auth = r.Header.Get("Authorization")
			if err := r.ParseMultipartForm(1 << 20); err == nil {
				seen.model = r.FormValue("model")
				seen.language = r.FormValue("language")
				seen.format = r.FormValue("response_format")
				if f, hdr, err := r.FormFile("file"); err == nil {
					raw, _ := io.ReadAll(f)
					seen.filename = hdr.Filename
					seen.audio = string(raw)
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func newBackend(t *testing.T, srv *httptest.Server, cfg Config) *Backend {
	t.Helper()
	cfg.BaseURL = srv.URL
	if cfg.APIKey == "" {
		cfg.APIKey = "sk-test"
	}
	cfg.Timeout = 5 * time.Second
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestTranscribeUploadsAudio(t *testing.T) {
	var seen capturedRequest
	srv := newServer(t, http.StatusOK, map[string]any{"text": " hello world ", "language": "english", "duration": 3.2}, &seen)
	defer srv.Close()

	b := newBackend(t, srv, Config{})
	audio := testutil.WriteFile(t, t.TempDir(), "job.wav", []byte("RIFFdata"))

	var progress []int
	res, err := b.Transcribe(context.Background(), transcription.Request{
		AudioPath: audio, Model: "large", Language: "en",
		Progress: func(p int) { progress = append(progress, p) },
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello world" || res.Language != "english" || res.ModelUsed != "openai-whisper-1" {
		t.Errorf("unexpected result %+v", res)
	}
	if seen.auth != "Bearer sk-test" || seen.model != "whisper-1" || seen.language != "en" || seen.format != "verbose_json" {
		t.Errorf("unexpected request %+v", seen)
	}
	if seen.filename != "job.wav" || seen.audio != "RIFFdata" {
		t.Errorf("unexpected upload %q %q", seen.filename, seen.audio)
	}
	if got := progress; len(got) != 5 || got[0] != 10 || got[4] != 90 {
		t.Errorf("unexpected progress %v", got)
	}
}

func TestTranscribeAutoLanguageOmitsField(t *testing.T) {
	var seen capturedRequest
	srv := newServer(t, http.StatusOK, map[string]any{"text": "hi"}, &seen)
	defer srv.Close()

	b := newBackend(t, srv, Config{})
	audio := testutil.WriteFile(t, t.TempDir(), "a.wav", []byte("x"))
	res, err := b.Transcribe(context.Background(), transcription.Request{AudioPath: audio, Model: "base", Language: "auto"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if seen.language != "" {
		t.Errorf("expected no language field, got %q", seen.language)
	}
	if res.Language != "unknown" {
		t.Errorf("expected unknown language, got %q", res.Language)
	}
}

func TestDailyLimit(t *testing.T) {
	srv := newServer(t, http.StatusOK, map[string]any{"text": "ok"}, nil)
	defer srv.Close()

	b := newBackend(t, srv, Config{DailyLimit: 1})
	audio := testutil.WriteFile(t, t.TempDir(), "a.wav", []byte("x"))

	if !b.IsAvailable(context.Background()) {
		t.Fatal("Expected availability before first call")
	}
	if _, err := b.Transcribe(context.Background(), transcription.Request{AudioPath: audio, Model: "base"}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if b.IsAvailable(context.Background()) {
		t.Error("Expected unavailability once the daily limit is spent")
	}
	if b.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", b.Remaining())
	}
	_, err := b.Transcribe(context.Background(), transcription.Request{AudioPath: audio, Model: "base"})
	if err == nil || err.Error() != "Daily API limit exceeded" {
		t.Fatalf("expected daily limit error, got %v", err)
	}
}

func TestTranscribeRejections(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid file format."}}`))
	}))
	defer srv.Close()

	b := newBackend(t, srv, Config{})
	dir := t.TempDir()
	small := testutil.WriteFile(t, dir, "a.wav", []byte("x"))

	_, err := b.Transcribe(context.Background(), transcription.Request{AudioPath: small, Model: "base"})
	if err == nil || !strings.HasPrefix(err.Error(), "OpenAI API error: 400") || !strings.Contains(err.Error(), "Invalid file format.") {
		t.Fatalf("unexpected error %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("400 must not be retried, got %d calls", calls.Load())
	}

	big := testutil.WriteFile(t, dir, "big.wav", nil)
	if err := os.Truncate(big, MaxFileSize+1); err != nil {
		t.Fatal(err)
	}
	_, err = b.Transcribe(context.Background(), transcription.Request{AudioPath: big, Model: "base"})
	if err == nil || err.Error() != "Audio file too large for OpenAI API (25MB limit)" {
		t.Fatalf("expected size error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Error("Oversized file must not be uploaded")
	}
}

func TestMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	b, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.IsAvailable(context.Background()) {
		t.Error("Expected unavailable without key")
	}
	_, err = b.Transcribe(context.Background(), transcription.Request{AudioPath: "/nope.wav", Model: "base"})
	if err == nil || err.Error() != "OpenAI API key not configured" {
		t.Fatalf("unexpected error %v", err)
	}
	if !b.SupportsModel("anything") || b.SupportedModels()[0] != "whisper-1" {
		t.Error("Expected every model to map to whisper-1")
	}
}
