// Package ephemcache provides an in-memory ephemeris cache with a rolling
// window.
//
// Planet positions only depend on the timestamp, so queries are rounded to a
// step boundary and solved once per step. A background worker keeps the
// window [now, now+horizon] warm and evicts frames from the trailing edge.
// Lookups outside the window fall through to direct computation and backfill
// the frame, so the cache never changes results, only cost.
package ephemcache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxxcraig/Stargazer/internal/catalog"
	"github.com/maxxcraig/Stargazer/internal/metrics"
	"github.com/maxxcraig/Stargazer/internal/orbit"
	"github.com/maxxcraig/Stargazer/internal/sphere"
)

// Config holds cache configuration loaded from environment variables.
type Config struct {
	Step    time.Duration // frame interval (default: 1s)
	Horizon time.Duration // how far ahead to precompute (default: 300s)
	Buffer  time.Duration // keep frames this long past their step (default: 60s)
}

// frame holds every solar-system body's geocentric position at one
// step-aligned instant.
type frame struct {
	positions   map[string]sphere.Equatorial
	generatedAt time.Time
}

// Cache is a step-aligned planet position cache. Safe for concurrent use.
// It satisfies the sky service's PlanetPositioner.
type Cache struct {
	mu     sync.RWMutex
	frames map[time.Time]*frame

	config Config
	store  *catalog.Store
	logger *slog.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates an ephemeris cache over the shared catalog store.
func New(config Config, store *catalog.Store, logger *slog.Logger) *Cache {
	logger.Info("ephemeris cache initialized",
		"step_seconds", config.Step.Seconds(),
		"horizon_seconds", config.Horizon.Seconds(),
		"buffer_seconds", config.Buffer.Seconds(),
	)

	return &Cache{
		frames: make(map[time.Time]*frame),
		config: config,
		store:  store,
		logger: logger,
	}
}

// RoundToStep rounds a timestamp down to the nearest step boundary. This
// normalizes timestamps so lookups within one frame interval hit the same
// entry. Always converts to UTC first; the orbital model expects UTC.
func (c *Cache) RoundToStep(t time.Time) time.Time {
	return t.UTC().Truncate(c.config.Step)
}

// compute solves the body's position directly, bypassing the cache.
func compute(p catalog.Planet, t time.Time) sphere.Equatorial {
	if p.Kind == catalog.KindSun {
		return orbit.SunPosition(t)
	}
	return orbit.ApparentPosition(p.Elements, t)
}

// Position returns the body's geocentric position at the step boundary
// containing t. Cached frames are served as-is; misses compute the position
// and backfill the frame.
func (c *Cache) Position(p catalog.Planet, t time.Time) sphere.Equatorial {
	key := c.RoundToStep(t)

	c.mu.RLock()
	f, ok := c.frames[key]
	var eq sphere.Equatorial
	var found bool
	if ok {
		eq, found = f.positions[p.ID]
	}
	c.mu.RUnlock()

	if found {
		c.hits.Add(1)
		metrics.RecordCacheHit()
		return eq
	}

	c.misses.Add(1)
	metrics.RecordCacheMiss()

	eq = compute(p, key)

	c.mu.Lock()
	f, ok = c.frames[key]
	if !ok {
		f = &frame{positions: make(map[string]sphere.Equatorial), generatedAt: time.Now()}
		c.frames[key] = f
	}
	f.positions[p.ID] = eq
	c.mu.Unlock()

	return eq
}

// generateFrame solves every catalog body at the given step boundary and
// stores the complete frame.
func (c *Cache) generateFrame(key time.Time) bool {
	cat, err := c.store.Get()
	if err != nil {
		return false
	}

	c.mu.RLock()
	_, exists := c.frames[key]
	c.mu.RUnlock()
	if exists {
		return false
	}

	positions := make(map[string]sphere.Equatorial, len(cat.Planets()))
	for _, p := range cat.Planets() {
		positions[p.ID] = compute(p, key)
	}

	c.mu.Lock()
	c.frames[key] = &frame{positions: positions, generatedAt: time.Now()}
	c.mu.Unlock()
	return true
}

// evictExpired removes frames older than now - buffer.
func (c *Cache) evictExpired() int {
	cutoff := time.Now().Add(-c.config.Buffer)
	var removed int

	c.mu.Lock()
	for ts := range c.frames {
		if ts.Before(cutoff) {
			delete(c.frames, ts)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		c.logger.Debug("ephemeris cache eviction", "frames_removed", removed)
	}
	return removed
}

// Stats holds cache statistics.
type Stats struct {
	Frames    int   `json:"frames"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Stats returns current cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	count := len(c.frames)
	c.mu.RUnlock()

	return Stats{
		Frames:    count,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
