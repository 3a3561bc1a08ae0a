// Package api wires the HTTP surface: routing, middleware, and the JSON
// handlers over the catalog and sky services.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/maxxcraig/Stargazer/internal/auth"
	"github.com/maxxcraig/Stargazer/internal/catalog"
	"github.com/maxxcraig/Stargazer/internal/health"
	"github.com/maxxcraig/Stargazer/internal/metrics"
	"github.com/maxxcraig/Stargazer/internal/sky"
	"github.com/maxxcraig/Stargazer/internal/sphere"
	"github.com/maxxcraig/Stargazer/internal/stream"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	store      *catalog.Store
	sky        *sky.Service
	positions  sky.PlanetPositioner
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, store *catalog.Store, skySvc *sky.Service, positions sky.PlanetPositioner, streamHandler *stream.Handler) *Server {
	if positions == nil {
		positions = sky.DirectPositioner{}
	}
	s := &Server{
		store:     store,
		sky:       skySvc,
		positions: positions,
		logger:    logger,
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(store))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/stars", s.handleStars)
	mux.HandleFunc("GET /api/v1/stars/visible", s.handleVisibleStars)
	mux.HandleFunc("GET /api/v1/stars/search", s.handleSearchStars)
	mux.HandleFunc("GET /api/v1/stars/{id}", s.handleStarByID)
	mux.HandleFunc("GET /api/v1/constellations", s.handleConstellations)
	mux.HandleFunc("GET /api/v1/constellations/{id}", s.handleConstellationByID)
	mux.HandleFunc("GET /api/v1/constellations/{id}/lines", s.handleConstellationLines)
	mux.HandleFunc("GET /api/v1/planets", s.handlePlanets)
	mux.HandleFunc("GET /api/v1/sky", s.handleSky)
	mux.HandleFunc("GET /api/v1/stream/sky", streamHandler.HandleSky)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control
// (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Handler returns the full middleware-wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeQueryError maps the service error taxonomy onto HTTP statuses.
func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, "catalog not loaded")
	case errors.Is(err, sky.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseSkyRequest builds a sky request from lat/lon/timestamp and the
// optional magnitude_limit and horizon_margin parameters. The timestamp
// defaults to now; full range validation happens in the sky service.
func parseSkyRequest(q url.Values) (sky.Request, error) {
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return sky.Request{}, errors.New("lat parameter required, must be a number")
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return sky.Request{}, errors.New("lon parameter required, must be a number")
	}

	at := time.Now().UTC()
	if v := q.Get("timestamp"); v != "" {
		at, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return sky.Request{}, errors.New("invalid timestamp, must be RFC3339")
		}
	}

	req := sky.NewRequest(sphere.Observer{LatDeg: lat, LonDeg: lon}, at)

	if v := q.Get("magnitude_limit"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return sky.Request{}, errors.New("invalid magnitude_limit, must be a number")
		}
		req.MagnitudeLimit = m
	}
	if v := q.Get("horizon_margin"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return sky.Request{}, errors.New("invalid horizon_margin, must be a number")
		}
		req.HorizonMarginDeg = m
	}
	return req, nil
}

// handleStars returns the full star table, optionally cut at max_magnitude.
// GET /api/v1/stars?max_magnitude=4.5
func (s *Server) handleStars(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.Get()
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	stars := cat.Stars()
	if v := r.URL.Query().Get("max_magnitude"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid max_magnitude, must be a number")
			return
		}
		stars = cat.StarsBelowMagnitude(m)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(stars),
		"stars": stars,
	})
}

// handleStarByID returns a single star.
// GET /api/v1/stars/{id}
func (s *Server) handleStarByID(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.Get()
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	star, ok := cat.StarByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown star")
		return
	}
	writeJSON(w, http.StatusOK, star)
}

// handleVisibleStars returns the stars above the horizon for an observer.
// GET /api/v1/stars/visible?lat&lon&timestamp&magnitude_limit&horizon_margin
func (s *Server) handleVisibleStars(w http.ResponseWriter, r *http.Request) {
	req, err := parseSkyRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.sky.VisibleBodies(r.Context(), req)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	stars := make([]sky.Placement, 0, len(result.Bodies))
	for _, b := range result.Bodies {
		if b.Kind == "star" {
			stars = append(stars, b)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp": result.Time.UTC().Format(time.RFC3339),
		"observer":  result.Observer,
		"count":     len(stars),
		"stars":     stars,
	})
}

// handleSearchStars matches stars by name.
// GET /api/v1/stars/search?q=vega
func (s *Server) handleSearchStars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q parameter required")
		return
	}

	cat, err := s.store.Get()
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	stars := cat.SearchStars(q)
	writeJSON(w, http.StatusOK, map[string]any{
		"query": q,
		"count": len(stars),
		"stars": stars,
	})
}

// handleConstellations returns the constellation table.
// GET /api/v1/constellations
func (s *Server) handleConstellations(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.Get()
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	cons := cat.Constellations()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":          len(cons),
		"constellations": cons,
	})
}

// handleConstellationByID returns a single constellation.
// GET /api/v1/constellations/{id}
func (s *Server) handleConstellationByID(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.Get()
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	con, ok := cat.ConstellationByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown constellation")
		return
	}
	writeJSON(w, http.StatusOK, con)
}

// handleConstellationLines returns a constellation's line segments with
// both endpoint stars resolved.
// GET /api/v1/constellations/{id}/lines
func (s *Server) handleConstellationLines(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.Get()
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	id := r.PathValue("id")
	segments, err := cat.ConstellationLines(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown constellation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"constellation": id,
		"count":         len(segments),
		"lines":         segments,
	})
}

// planetView is a catalog planet with its current geocentric position.
type planetView struct {
	catalog.Planet
	Equatorial sphere.Equatorial `json:"equatorial"`
}

// handlePlanets returns the planet table with current RA/Dec.
// GET /api/v1/planets?timestamp=2026-02-06T04:00:00Z
func (s *Server) handlePlanets(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.Get()
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	at := time.Now().UTC()
	if v := r.URL.Query().Get("timestamp"); v != "" {
		at, err = time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid timestamp, must be RFC3339")
			return
		}
	}

	planets := cat.Planets()
	views := make([]planetView, len(planets))
	for i, p := range planets {
		views[i] = planetView{Planet: p, Equatorial: s.positions.Position(p, at)}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp": at.Format(time.RFC3339),
		"count":     len(views),
		"planets":   views,
	})
}

// handleSky returns every visible body for an observer.
// GET /api/v1/sky?lat&lon&timestamp&magnitude_limit&horizon_margin
func (s *Server) handleSky(w http.ResponseWriter, r *http.Request) {
	req, err := parseSkyRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.sky.VisibleBodies(r.Context(), req)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp": result.Time.UTC().Format(time.RFC3339),
		"observer":  result.Observer,
		"count":     len(result.Bodies),
		"bodies":    result.Bodies,
	})
}

// probePath returns true for health/readiness probe paths that should not
// log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush and Unwrap keep SSE streaming working through the middleware chain.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
