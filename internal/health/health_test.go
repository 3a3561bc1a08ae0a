package health

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maxxcraig/Stargazer/internal/catalog"
)

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	Healthz(w, httptest.NewRequest("GET", "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "ok\n" {
		t.Errorf("body = %q, want %q", w.Body.String(), "ok\n")
	}
}

func TestReadyz(t *testing.T) {
	store := catalog.NewStore()
	handler := Readyz(store)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status before load = %d, want 503", w.Code)
	}

	cat, err := catalog.Load(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("catalog load failed: %v", err)
	}
	store.Set(cat)

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status after load = %d, want 200", w.Code)
	}
	if w.Body.String() != "ready\n" {
		t.Errorf("body = %q, want %q", w.Body.String(), "ready\n")
	}
}
