package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/server/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeError(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var resp map[string]map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("invalid JSON: %v (%s)", err, body)
	}
	return resp["error"]
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(middleware.Recovery(logger.NewWriter(&buf, "error")))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/boom", func(*gin.Context) { panic("test panic") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ok", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if code := decodeError(t, rr.Body.Bytes())["code"]; code != "INTERNAL_ERROR" {
		t.Errorf("code = %v", code)
	}
	if strings.Contains(rr.Body.String(), "test panic") {
		t.Error("Panic value must not leak to the client")
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("expected panic to be logged, got %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) {
		seen = logger.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when missing", "", false},
		{"reused when present", "abc-123", true},
		{"replaced when oversized", strings.Repeat("x", 200), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.incoming != "" {
				req.Header.Set(middleware.RequestIDHeader, tt.incoming)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			got := rr.Header().Get(middleware.RequestIDHeader)
			if got == "" {
				t.Fatal("Missing response header")
			}
			if got != seen {
				t.Errorf("context id %q != header %q", seen, got)
			}
			if tt.keep != (got == tt.incoming) {
				t.Errorf("incoming %q, got %q", tt.incoming, got)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// CORS
// ---------------------------------------------------------------------------

func TestCORS(t *testing.T) {
	cfg := &middleware.CORSConfig{
		AllowedOrigins: []string{"https://app.example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := middleware.CORS(cfg)(next)

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"allowed origin", http.MethodGet, "https://app.example.com", http.StatusOK, "https://app.example.com"},
		{"unknown origin", http.MethodGet, "https://evil.example.com", http.StatusOK, ""},
		{"preflight", http.MethodOptions, "https://app.example.com", http.StatusNoContent, "https://app.example.com"},
		{"options without origin", http.MethodOptions, "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", http.NoBody)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("allow origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}

func TestCORSWildcard(t *testing.T) {
	h := middleware.CORS(&middleware.CORSConfig{AllowedOrigins: []string{"*"}})(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "https://any.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://any.example.com" {
		t.Errorf("allow origin = %q", got)
	}
	if got := rr.Header().Get("Access-Control-Expose-Headers"); got != middleware.RequestIDHeader {
		t.Errorf("expose headers = %q", got)
	}
}

// ---------------------------------------------------------------------------
// BodySizeLimit
// ---------------------------------------------------------------------------

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})
	h := middleware.BodySizeLimit("16")(r)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
	if rr.Code != http.StatusOK {
		t.Errorf("small body: status %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"url":"`+strings.Repeat("a", 64)+`"}`)))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body: status %d", rr.Code)
	}
	if code := decodeError(t, rr.Body.Bytes())["code"]; code != "VALIDATION_ERROR" {
		t.Errorf("code = %v", code)
	}

	// Unknown length bodies are cut off while reading.
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"url":"`+strings.Repeat("a", 64)+`"}`))
	req.ContentLength = -1
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("chunked body: status %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// RateLimit
// ---------------------------------------------------------------------------

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.POST("/jobs", middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 1,
		Burst:             2,
		KeyFunc:           func(c *gin.Context) string { return c.GetHeader("X-Client") },
	}), func(c *gin.Context) { c.Status(http.StatusAccepted) })

	send := func(client string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/jobs", http.NoBody)
		req.Header.Set("X-Client", client)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	for i := range 2 {
		if rr := send("a"); rr.Code != http.StatusAccepted {
			t.Fatalf("request %d: status %d", i, rr.Code)
		}
	}
	rr := send("a")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Missing Retry-After")
	}
	body := decodeError(t, rr.Body.Bytes())
	if body["code"] != "RATE_LIMITED" || body["retryable"] != true {
		t.Errorf("unexpected body %v", body)
	}

	// Other clients have their own bucket.
	if rr := send("b"); rr.Code != http.StatusAccepted {
		t.Errorf("client b: status %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// RequestLogger
// ---------------------------------------------------------------------------

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(middleware.RequestLogger(logger.NewWriter(&buf, "debug")))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/jobs/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if buf.Len() != 0 {
		t.Errorf("probe path should not be logged, got %q", buf.String())
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/jobs/abc", http.NoBody))
	out := buf.String()
	for _, want := range []string{`"route":"/api/jobs/:id"`, `"status":404`, `"level":"warn"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %s", out, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Chain / GinWrap
// ---------------------------------------------------------------------------

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := middleware.Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if strings.Join(order, ",") != "a,b,handler" {
		t.Errorf("order = %v", order)
	}
}

func TestGinWrapAborts(t *testing.T) {
	block := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusForbidden) })
	}
	reached := false
	r := gin.New()
	r.GET("/", middleware.GinWrap(block), func(*gin.Context) { reached = true })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if reached || rr.Code != http.StatusForbidden {
		t.Errorf("reached=%v status=%d", reached, rr.Code)
	}
}
