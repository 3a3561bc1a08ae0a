// Package stream implements Server-Sent Events (SSE) streaming of sky
// placements. Clients connect via GET /api/v1/stream/sky with an observer
// location and receive the visible sky recomputed at a fixed interval.
//
// SSE message format:
//
//	data: {"type":"sky","timestamp":"2026-02-06T04:00:00Z","bodies":[...]}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","stars":72,"planets":8,"interval_seconds":5}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent
// timeout. Reconnecting clients receive a fresh metadata message on each
// connection.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/maxxcraig/Stargazer/internal/catalog"
	"github.com/maxxcraig/Stargazer/internal/httputil"
	"github.com/maxxcraig/Stargazer/internal/metrics"
	"github.com/maxxcraig/Stargazer/internal/sky"
	"github.com/maxxcraig/Stargazer/internal/sphere"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Trust X-Forwarded-For for client IPs.
}

// Handler manages SSE streaming connections.
type Handler struct {
	sky     *sky.Service
	store   *catalog.Store
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(skySvc *sky.Service, store *catalog.Store, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		sky:     skySvc,
		store:   store,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// HandleSky serves the SSE sky stream.
// GET /api/v1/stream/sky?lat=32.7&lon=-117.2&interval=5&magnitude_limit=6.5
func (h *Handler) HandleSky(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		badRequest(w, "lat parameter required, must be -90..90")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		badRequest(w, "lon parameter required, must be -180..180")
		return
	}

	interval := 5
	if v := q.Get("interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 60 {
			badRequest(w, "invalid interval parameter, must be 1-60")
			return
		}
		interval = n
	}

	magLimit := sky.DefaultMagnitudeLimit
	if v := q.Get("magnitude_limit"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			badRequest(w, "invalid magnitude_limit parameter")
			return
		}
		magLimit = m
	}

	// Rate limiting: enforce concurrent stream limit per IP.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	metrics.StreamConnected()
	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"lat", lat,
		"lon", lon,
		"interval", interval,
	)

	// Cleanup on disconnect: release rate limit slot and update metrics.
	defer func() {
		h.limiter.release(ip)
		metrics.StreamDisconnected()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "streaming not supported"})
		return
	}

	// Set SSE response headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Use ResponseController to manage write deadlines for long-lived SSE.
	// Clear the server's default WriteTimeout for this connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Send jittered retry interval (3-7s) to prevent thundering-herd
	// reconnection storms when the server restarts.
	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	// Send metadata message (first message on every connection).
	meta := metadataMessage{Type: "metadata", IntervalSeconds: interval}
	if cat, err := h.store.Get(); err == nil {
		meta.Stars = len(cat.Stars())
		meta.Planets = len(cat.Planets())
	}
	if err := c.sendJSON(meta); err != nil {
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	observer := sphere.Observer{LatDeg: lat, LonDeg: lon}

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case t := <-ticker.C:
			req := sky.NewRequest(observer, t.UTC())
			req.MagnitudeLimit = magLimit

			result, err := h.sky.VisibleBodies(ctx, req)
			if err != nil {
				if errors.Is(err, catalog.ErrNotReady) {
					h.logger.Debug("stream waiting for catalog", "remote_ip", ip)
					continue
				}
				h.logger.Warn("stream sky computation failed", "remote_ip", ip, "error", err)
				continue
			}

			msg := skyMessage{
				Type:      "sky",
				Timestamp: result.Time.UTC().Format(time.RFC3339),
				Bodies:    result.Bodies,
			}
			if err := c.sendJSON(msg); err != nil {
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}

			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type            string `json:"type"`
	Stars           int    `json:"stars"`
	Planets         int    `json:"planets"`
	IntervalSeconds int    `json:"interval_seconds"`
}

type skyMessage struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Bodies    []sky.Placement `json:"bodies"`
}
