package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/yttext/component"
	apperrors "github.com/kbukum/yttext/errors"
	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/server/middleware"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8000 || cfg.Host != "0.0.0.0" {
		t.Errorf("unexpected addr %s", cfg.Addr())
	}
	if cfg.RateLimit.RequestsPerMinute != 60 || cfg.RateLimit.Burst != 10 {
		t.Errorf("unexpected rate limit %+v", cfg.RateLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"port too high", func(c *Config) { c.Port = 70000 }, true},
		{"ephemeral port", func(c *Config) { c.Port = EphemeralPort }, false},
		{"negative port", func(c *Config) { c.Port = -2 }, true},
		{"negative read timeout", func(c *Config) { c.ReadTimeout = -1 }, true},
		{"negative write timeout", func(c *Config) { c.WriteTimeout = -1 }, true},
		{"rate limit without budget", func(c *Config) {
			c.RateLimit = middleware.RateLimitConfig{Enabled: true, RequestsPerMinute: -1, Burst: 1}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerLifecycle(t *testing.T) {
	srv := New(Config{Host: "127.0.0.1", Port: EphemeralPort}, nil, logger.Nop())
	srv.Engine().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	comp := NewComponent(srv)
	ctx := context.Background()
	if h := comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("health before start = %+v", h)
	}
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := comp.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("health after start = %+v", h)
	}
	if d := comp.Describe(); d.Type != "server" || !strings.Contains(d.Details, "routes=1") {
		t.Errorf("describe = %+v", d)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/ping", srv.Addr()))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" || resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Errorf("body=%q headers=%v", body, resp.Header)
	}

	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestStartFailsOnBusyPort(t *testing.T) {
	first := New(Config{Host: "127.0.0.1", Port: EphemeralPort}, nil, logger.Nop())
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop(context.Background())

	var cfg Config
	cfg.Host = "127.0.0.1"
	if _, err := fmt.Sscanf(first.Addr()[strings.LastIndex(first.Addr(), ":")+1:], "%d", &cfg.Port); err != nil {
		t.Fatal(err)
	}
	second := New(cfg, nil, logger.Nop())
	if err := second.Start(context.Background()); err == nil {
		_ = second.Stop(context.Background())
		t.Fatal("Expected bind error")
	}
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"app error", apperrors.NotFound("job", "abc"), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", apperrors.Conflict("job is still running"), http.StatusConflict, "CONFLICT"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rr)
			RespondWithError(c, tt.err)
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d", rr.Code)
			}
			var resp apperrors.ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if string(resp.Error.Code) != tt.wantCode {
				t.Errorf("code = %s", resp.Error.Code)
			}
		})
	}
}
