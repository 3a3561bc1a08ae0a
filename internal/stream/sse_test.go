package stream

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/maxxcraig/Stargazer/internal/catalog"
	"github.com/maxxcraig/Stargazer/internal/sky"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHandler(t *testing.T, cfg Config) *Handler {
	t.Helper()
	cat, err := catalog.Load(testLogger())
	if err != nil {
		t.Fatalf("catalog load failed: %v", err)
	}
	store := catalog.NewStore()
	store.Set(cat)
	svc := sky.NewService(store, nil, sky.Config{Workers: 2}, testLogger())
	return NewHandler(svc, store, cfg, testLogger())
}

func defaultConfig() Config {
	return Config{MaxConcurrentPerIP: 2, KeepaliveInterval: 30 * time.Second}
}

func TestStreamLimiter(t *testing.T) {
	l := newStreamLimiter(2)

	if !l.acquire("1.1.1.1") || !l.acquire("1.1.1.1") {
		t.Fatal("limiter rejected connections under the per-IP cap")
	}
	if l.acquire("1.1.1.1") {
		t.Error("limiter allowed a third connection for one IP")
	}
	if !l.acquire("2.2.2.2") {
		t.Error("limiter rejected a different IP")
	}

	l.release("1.1.1.1")
	if !l.acquire("1.1.1.1") {
		t.Error("limiter rejected after release")
	}
	if l.count("2.2.2.2") != 1 {
		t.Errorf("count = %d, want 1", l.count("2.2.2.2"))
	}
}

func TestHandleSky_ParamValidation(t *testing.T) {
	h := testHandler(t, defaultConfig())

	tests := []struct {
		name  string
		query string
	}{
		{"missing lat", "lon=0"},
		{"missing lon", "lat=0"},
		{"lat out of range", "lat=91&lon=0"},
		{"lon out of range", "lat=0&lon=-181"},
		{"interval too small", "lat=0&lon=0&interval=0"},
		{"interval too large", "lat=0&lon=0&interval=61"},
		{"bad magnitude limit", "lat=0&lon=0&magnitude_limit=bright"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/stream/sky?"+tt.query, nil)
			w := httptest.NewRecorder()
			h.HandleSky(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleSky_RateLimit(t *testing.T) {
	h := testHandler(t, Config{MaxConcurrentPerIP: 1, KeepaliveInterval: 30 * time.Second})

	// httptest requests share the default RemoteAddr; occupy its only slot.
	req := httptest.NewRequest("GET", "/api/v1/stream/sky?lat=0&lon=0", nil)
	ip := "192.0.2.1"
	if !h.limiter.acquire(ip) {
		t.Fatal("could not occupy limiter slot")
	}

	w := httptest.NewRecorder()
	h.HandleSky(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestHandleSky_MetadataFirst(t *testing.T) {
	h := testHandler(t, defaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest("GET", "/api/v1/stream/sky?lat=32.7&lon=-117.2", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	h.HandleSky(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "retry: ") {
		t.Error("missing retry interval")
	}
	retryIdx := strings.Index(body, "retry: ")
	metaIdx := strings.Index(body, `"type":"metadata"`)
	if metaIdx < 0 {
		t.Fatalf("missing metadata message in body:\n%s", body)
	}
	if retryIdx > metaIdx {
		t.Error("retry interval should precede metadata")
	}
	if !strings.Contains(body, `"interval_seconds":5`) {
		t.Errorf("metadata missing default interval:\n%s", body)
	}
}

func TestHandleSky_DeliversSkyMessages(t *testing.T) {
	h := testHandler(t, defaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest("GET", "/api/v1/stream/sky?lat=32.7&lon=-117.2&interval=1", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	h.HandleSky(w, req)

	body := w.Body.String()
	if !strings.Contains(body, `"type":"sky"`) {
		t.Fatalf("no sky message delivered within the window:\n%s", body)
	}
	if !strings.Contains(body, `"azimuth"`) || !strings.Contains(body, `"altitude"`) {
		t.Error("sky message missing horizontal coordinates")
	}
}
