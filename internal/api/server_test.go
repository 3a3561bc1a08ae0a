package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maxxcraig/Stargazer/internal/auth"
	"github.com/maxxcraig/Stargazer/internal/catalog"
	"github.com/maxxcraig/Stargazer/internal/sky"
	"github.com/maxxcraig/Stargazer/internal/stream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newTestServer(t *testing.T, authCfg auth.Config, loadCatalog bool) *Server {
	t.Helper()
	logger := testLogger()

	store := catalog.NewStore()
	if loadCatalog {
		cat, err := catalog.Load(logger)
		if err != nil {
			t.Fatalf("catalog load failed: %v", err)
		}
		store.Set(cat)
	}

	skySvc := sky.NewService(store, nil, sky.Config{Workers: 2}, logger)
	streamCfg := stream.Config{MaxConcurrentPerIP: 10, KeepaliveInterval: 30 * time.Second}
	streamHandler := stream.NewHandler(skySvc, store, streamCfg, logger)

	return NewServer(":0", logger, authCfg, store, skySvc, nil, streamHandler)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body
}

func TestReadyzGatesOnCatalog(t *testing.T) {
	empty := newTestServer(t, auth.Config{}, false)
	if w := get(t, empty, "/readyz"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before load = %d, want 503", w.Code)
	}
	if w := get(t, empty, "/healthz"); w.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", w.Code)
	}

	loaded := newTestServer(t, auth.Config{}, true)
	if w := get(t, loaded, "/readyz"); w.Code != http.StatusOK {
		t.Errorf("readyz after load = %d, want 200", w.Code)
	}
}

func TestQueriesBeforeCatalogLoad(t *testing.T) {
	s := newTestServer(t, auth.Config{}, false)

	for _, path := range []string{
		"/api/v1/stars",
		"/api/v1/constellations",
		"/api/v1/planets",
		"/api/v1/sky?lat=0&lon=0",
	} {
		if w := get(t, s, path); w.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d before catalog load, want 503", path, w.Code)
		}
	}
}

func TestStarsEndpoint(t *testing.T) {
	s := newTestServer(t, auth.Config{}, true)

	w := get(t, s, "/api/v1/stars")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decode(t, w)
	if body["count"].(float64) < 50 {
		t.Errorf("star count = %v, expected a substantial table", body["count"])
	}

	w = get(t, s, "/api/v1/stars?max_magnitude=1.0")
	body = decode(t, w)
	stars := body["stars"].([]any)
	for _, raw := range stars {
		star := raw.(map[string]any)
		if star["magnitude"].(float64) > 1.0 {
			t.Errorf("star %v above the magnitude cut", star["id"])
		}
	}

	if w := get(t, s, "/api/v1/stars?max_magnitude=bright"); w.Code != http.StatusBadRequest {
		t.Errorf("bad max_magnitude = %d, want 400", w.Code)
	}
}

func TestStarByID(t *testing.T) {
	s := newTestServer(t, auth.Config{}, true)

	w := get(t, s, "/api/v1/stars/hip_32349")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decode(t, w); body["common_name"] != "Sirius" {
		t.Errorf("common_name = %v, want Sirius", body["common_name"])
	}

	if w := get(t, s, "/api/v1/stars/hip_0"); w.Code != http.StatusNotFound {
		t.Errorf("unknown star = %d, want 404", w.Code)
	}
}

func TestVisibleStarsEndpoint(t *testing.T) {
	s := newTestServer(t, auth.Config{}, true)

	if w := get(t, s, "/api/v1/stars/visible?lon=0"); w.Code != http.StatusBadRequest {
		t.Errorf("missing lat = %d, want 400", w.Code)
	}
	if w := get(t, s, "/api/v1/stars/visible?lat=91&lon=0"); w.Code != http.StatusBadRequest {
		t.Errorf("lat out of range = %d, want 400", w.Code)
	}

	w := get(t, s, "/api/v1/stars/visible?lat=32.7157&lon=-117.1611&timestamp=2000-01-01T12:00:00Z")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decode(t, w)
	var sawSirius bool
	for _, raw := range body["stars"].([]any) {
		star := raw.(map[string]any)
		if star["kind"] != "star" {
			t.Errorf("non-star body %v in visible stars", star["id"])
		}
		if star["id"] == "hip_32349" {
			sawSirius = true
		}
	}
	if !sawSirius {
		t.Error("Sirius missing from visible stars over San Diego")
	}
}

func TestSearchEndpoint(t *testing.T) {
	s := newTestServer(t, auth.Config{}, true)

	if w := get(t, s, "/api/v1/stars/search"); w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d, want 400", w.Code)
	}

	w := get(t, s, "/api/v1/stars/search?q=VeGa")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decode(t, w)
	stars := body["stars"].([]any)
	if len(stars) == 0 || stars[0].(map[string]any)["id"] != "hip_91262" {
		t.Errorf("search for vega returned %v, want hip_91262 first", stars)
	}
}

func TestConstellationEndpoints(t *testing.T) {
	s := newTestServer(t, auth.Config{}, true)

	w := get(t, s, "/api/v1/constellations")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decode(t, w); body["count"].(float64) < 5 {
		t.Errorf("constellation count = %v", body["count"])
	}

	if w := get(t, s, "/api/v1/constellations/ori"); w.Code != http.StatusOK {
		t.Errorf("GET constellation = %d, want 200", w.Code)
	}
	if w := get(t, s, "/api/v1/constellations/nope"); w.Code != http.StatusNotFound {
		t.Errorf("unknown constellation = %d, want 404", w.Code)
	}

	w = get(t, s, "/api/v1/constellations/ori/lines")
	if w.Code != http.StatusOK {
		t.Fatalf("lines status = %d, want 200", w.Code)
	}
	body := decode(t, w)
	lines := body["lines"].([]any)
	if len(lines) == 0 {
		t.Fatal("no line segments for Orion")
	}
	first := lines[0].(map[string]any)
	if first["from"].(map[string]any)["id"] == "" {
		t.Error("line endpoint star not resolved")
	}

	if w := get(t, s, "/api/v1/constellations/nope/lines"); w.Code != http.StatusNotFound {
		t.Errorf("unknown constellation lines = %d, want 404", w.Code)
	}
}

func TestPlanetsEndpoint(t *testing.T) {
	s := newTestServer(t, auth.Config{}, true)

	w := get(t, s, "/api/v1/planets?timestamp=2024-06-01T00:00:00Z")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decode(t, w)
	planets := body["planets"].([]any)
	if len(planets) != 8 {
		t.Fatalf("planet count = %d, want 8", len(planets))
	}
	for _, raw := range planets {
		p := raw.(map[string]any)
		eq, ok := p["equatorial"].(map[string]any)
		if !ok {
			t.Fatalf("planet %v missing equatorial position", p["id"])
		}
		ra := eq["ra"].(float64)
		dec := eq["dec"].(float64)
		if ra < 0 || ra >= 360 || dec < -90 || dec > 90 {
			t.Errorf("planet %v position out of range: ra=%v dec=%v", p["id"], ra, dec)
		}
	}

	if w := get(t, s, "/api/v1/planets?timestamp=junk"); w.Code != http.StatusBadRequest {
		t.Errorf("bad timestamp = %d, want 400", w.Code)
	}
}

func TestSkyEndpoint(t *testing.T) {
	s := newTestServer(t, auth.Config{}, true)

	w := get(t, s, "/api/v1/sky?lat=32.7157&lon=-117.1611&timestamp=2000-01-01T12:00:00Z")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decode(t, w)
	bodies := body["bodies"].([]any)
	if len(bodies) == 0 {
		t.Fatal("empty sky")
	}

	// Brightest first.
	prev := -100.0
	for _, raw := range bodies {
		b := raw.(map[string]any)
		mag := b["magnitude"].(float64)
		if mag < prev {
			t.Fatalf("brightness order violated: %v after %v", mag, prev)
		}
		prev = mag
	}
}

func TestAuthProtectsAPI(t *testing.T) {
	s := newTestServer(t, auth.Config{Enabled: true, Token: "hunter2"}, true)

	if w := get(t, s, "/api/v1/stars"); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated = %d, want 401", w.Code)
	}
	if w := get(t, s, "/healthz"); w.Code != http.StatusOK {
		t.Errorf("healthz with auth on = %d, want 200", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/v1/stars", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated = %d, want 200", w.Code)
	}
}
