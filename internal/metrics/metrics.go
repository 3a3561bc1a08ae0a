// Package metrics registers the Prometheus collectors for the service and
// provides the HTTP middleware that feeds the request metrics.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stargazer_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stargazer_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	skyComputeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stargazer_sky_compute_duration_seconds",
			Help:    "Time spent computing one full set of sky placements.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	skyVisibleBodies = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stargazer_sky_visible_bodies",
			Help: "Bodies above the horizon in the most recent sky computation.",
		},
		[]string{"kind"},
	)

	catalogEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stargazer_catalog_entries",
			Help: "Entries loaded into the catalog.",
		},
		[]string{"collection"},
	)

	ephemerisCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stargazer_ephemeris_cache_hits_total",
			Help: "Planet position lookups served from the ephemeris cache.",
		},
	)

	ephemerisCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stargazer_ephemeris_cache_misses_total",
			Help: "Planet position lookups that had to be computed.",
		},
	)

	streamConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stargazer_stream_active_connections",
			Help: "Currently open sky stream connections.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stargazer_stream_messages_total",
			Help: "Messages written to sky streams.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stargazer_stream_bytes_total",
			Help: "Bytes written to sky streams.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		skyComputeDuration,
		skyVisibleBodies,
		catalogEntries,
		ephemerisCacheHits,
		ephemerisCacheMisses,
		streamConnections,
		streamMessagesTotal,
		streamBytesTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSkyComputation records one sky placement pass.
func ObserveSkyComputation(d time.Duration, stars, planets int) {
	skyComputeDuration.Observe(d.Seconds())
	skyVisibleBodies.WithLabelValues("star").Set(float64(stars))
	skyVisibleBodies.WithLabelValues("planet").Set(float64(planets))
}

// SetCatalogSizes records the loaded catalog collection sizes.
func SetCatalogSizes(stars, constellations, planets int) {
	catalogEntries.WithLabelValues("stars").Set(float64(stars))
	catalogEntries.WithLabelValues("constellations").Set(float64(constellations))
	catalogEntries.WithLabelValues("planets").Set(float64(planets))
}

// RecordCacheHit counts an ephemeris cache hit.
func RecordCacheHit() { ephemerisCacheHits.Inc() }

// RecordCacheMiss counts an ephemeris cache miss.
func RecordCacheMiss() { ephemerisCacheMisses.Inc() }

// StreamConnected marks a sky stream connection opened.
func StreamConnected() { streamConnections.Inc() }

// StreamDisconnected marks a sky stream connection closed.
func StreamDisconnected() { streamConnections.Dec() }

// RecordStreamMessage counts one message written to a sky stream.
func RecordStreamMessage(bytes int) {
	streamMessagesTotal.Inc()
	streamBytesTotal.Add(float64(bytes))
}

// knownRoutes are the exact paths the server registers. Anything else is
// collapsed so scanners cannot inflate label cardinality.
var knownRoutes = map[string]bool{
	"/":                      true,
	"/healthz":               true,
	"/readyz":                true,
	"/metrics":               true,
	"/api/v1/stars":          true,
	"/api/v1/stars/visible":  true,
	"/api/v1/stars/search":   true,
	"/api/v1/constellations": true,
	"/api/v1/planets":        true,
	"/api/v1/sky":            true,
	"/api/v1/stream/sky":     true,
}

// normalizeRoute maps a request path to a bounded label set.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/constellations/"); ok && rest != "" {
		id, tail, hasTail := strings.Cut(rest, "/")
		if id != "" {
			if !hasTail {
				return "/api/v1/constellations/{id}"
			}
			if tail == "lines" {
				return "/api/v1/constellations/{id}/lines"
			}
		}
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/stars/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/api/v1/stars/{id}"
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/planets/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/api/v1/planets/{id}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush and Unwrap keep SSE streaming working through the middleware chain.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
