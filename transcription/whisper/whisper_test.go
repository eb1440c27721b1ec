package whisper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kbukum/yttext/testutil"
	"github.com/kbukum/yttext/transcription"
)

func sidecar(t *testing.T, healthy bool, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if handler != nil {
		mux.HandleFunc("/transcribe", handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestIsAvailable(t *testing.T) {
	tests := []struct {
		name    string
		healthy bool
		want    bool
	}{
		{"healthy", true, true},
		{"unhealthy", false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := sidecar(t, tc.healthy, nil)
			b, err := New(Config{URL: srv.URL})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := b.IsAvailable(context.Background()); got != tc.want {
				t.Errorf("IsAvailable = %v, want %v", got, tc.want)
			}
		})
	}

	b, _ := New(Config{URL: "http://127.0.0.1:1"})
	if b.IsAvailable(context.Background()) {
		t.Error("Expected unreachable sidecar to be unavailable")
	}
}

func TestTranscribe(t *testing.T) {
	var model, lang, audio string
	srv := sidecar(t, true, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		model, lang = r.FormValue("model"), r.FormValue("language")
		f, _, err := r.FormFile("audio")
		if err == nil {
			raw, _ := io.ReadAll(f)
			audio = string(raw)
		}
		_ = json.NewEncoder(w).Encode(whisperResponse{
			Segments: []whisperSegment{{Text: " hello", Start: 0, End: 1}, {Text: " world", Start: 1, End: 2}},
			Language: "en",
		})
	})

	b, err := New(Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	path := testutil.WriteFile(t, t.TempDir(), "a.wav", []byte("RIFF"))
	res, err := b.Transcribe(context.Background(), transcription.Request{AudioPath: path, Model: "small", Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello world" || res.Language != "en" || res.ModelUsed != "whisper-small" || len(res.Segments) != 2 {
		t.Errorf("unexpected result %+v", res)
	}
	if model != "small" || lang != "en" || audio != "RIFF" {
		t.Errorf("unexpected request model=%q lang=%q audio=%q", model, lang, audio)
	}
}

func TestTranscribeErrorStatus(t *testing.T) {
	srv := sidecar(t, true, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model load failed", http.StatusUnprocessableEntity)
	})
	b, _ := New(Config{URL: srv.URL})
	path := testutil.WriteFile(t, t.TempDir(), "a.wav", nil)

	_, err := b.Transcribe(context.Background(), transcription.Request{AudioPath: path, Model: "base"})
	if err == nil || !strings.Contains(err.Error(), "whisper error (status 422): model load failed") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestFactory(t *testing.T) {
	b, err := Factory(map[string]any{"url": "http://sidecar:8387", "timeout": "10m", "device": "cuda"})
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	wb := b.(*Backend)
	if wb.cfg.URL != "http://sidecar:8387" || wb.cfg.Device != "cuda" || wb.Priority() != 100 {
		t.Errorf("unexpected config %+v", wb.cfg)
	}
}
