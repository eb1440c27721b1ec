package transcription

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func registerFake(t *testing.T, name string, b *fakeBackend, err error) {
	t.Helper()
	Factories.RegisterFactory(name, func(map[string]any) (Backend, error) {
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if strings.Join(cfg.Backends, ",") != "whisper_cpp,mlx,openai,whisper" {
		t.Errorf("unexpected defaults %v", cfg.Backends)
	}

	cfg = Config{Backends: []string{"test-known", "nope"}}
	registerFake(t, "test-known", &fakeBackend{name: "test-known"}, nil)
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "nope") || strings.Contains(err.Error(), "unknown backend(s) test-known") {
		t.Fatalf("expected unknown backend error naming nope, got %v", err)
	}
}

func TestBuildSkipsFailingConstructors(t *testing.T) {
	registerFake(t, "test-good", &fakeBackend{name: "test-good", priority: 3, available: true}, nil)
	registerFake(t, "test-bad", nil, errors.New("missing api key"))

	reg, err := Build(context.Background(), Config{Backends: []string{"test-bad", "test-good"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if reg.Len() != 1 || reg.Best(context.Background()).Name() != "test-good" {
		t.Errorf("expected only test-good, got %d backends", reg.Len())
	}
}

func TestBuildRejectsUnknownNames(t *testing.T) {
	if _, err := Build(context.Background(), Config{Backends: []string{"does-not-exist"}}); err == nil {
		t.Fatal("Expected config error")
	}
}

func TestDecodeSettings(t *testing.T) {
	type settings struct {
		Binary     string        `mapstructure:"binary"`
		Threads    int           `mapstructure:"threads"`
		Timeout    time.Duration `mapstructure:"timeout"`
		DailyLimit int           `mapstructure:"daily_limit"`
	}
	var s settings
	err := DecodeSettings(map[string]any{
		"binary":      "whisper-cli",
		"threads":     "4",
		"timeout":     "45s",
		"daily_limit": 100,
	}, &s)
	if err != nil {
		t.Fatalf("DecodeSettings: %v", err)
	}
	if s.Binary != "whisper-cli" || s.Threads != 4 || s.Timeout != 45*time.Second || s.DailyLimit != 100 {
		t.Errorf("unexpected decode %+v", s)
	}

	if err := DecodeSettings(nil, &s); err != nil {
		t.Errorf("nil settings should be a no-op, got %v", err)
	}
	if err := DecodeSettings(map[string]any{"threads": "many"}, &s); err == nil {
		t.Error("Expected decode error for non-numeric threads")
	}
}
