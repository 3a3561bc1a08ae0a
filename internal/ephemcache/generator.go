package ephemcache

import (
	"context"
	"time"
)

// Start begins the background maintenance loop. It performs an initial
// warmup (filling the full [now, now+horizon] window), then continuously
// generates new frames at the leading edge and evicts expired frames from
// the trailing edge.
//
// Blocks until ctx is cancelled.
func (c *Cache) Start(ctx context.Context) {
	if !c.waitForCatalog(ctx) {
		return
	}

	c.warmup(ctx)

	ticker := time.NewTicker(c.config.Step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("ephemeris cache generator stopped")
			return
		case <-ticker.C:
			c.generateLeadingEdge()
			c.evictExpired()
		}
	}
}

// waitForCatalog blocks until the catalog store is ready, checking every
// second. Returns false if ctx is cancelled.
func (c *Cache) waitForCatalog(ctx context.Context) bool {
	if c.store.Ready() {
		return true
	}

	c.logger.Info("ephemeris cache waiting for catalog...")
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if c.store.Ready() {
				c.logger.Info("catalog ready, starting ephemeris warmup")
				return true
			}
		}
	}
}

// warmup fills the cache with frames for [now, now+horizon].
func (c *Cache) warmup(ctx context.Context) {
	now := c.RoundToStep(time.Now())
	numFrames := int(c.config.Horizon/c.config.Step) + 1

	c.logger.Info("ephemeris warmup starting",
		"frames", numFrames,
		"from", now.Format(time.RFC3339),
		"to", now.Add(c.config.Horizon).Format(time.RFC3339),
	)

	start := time.Now()
	generated := 0

	for i := 0; i < numFrames; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if c.generateFrame(now.Add(time.Duration(i) * c.config.Step)) {
			generated++
		}
	}

	c.logger.Info("ephemeris warmup complete",
		"generated", generated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// generateLeadingEdge generates the frame at the leading edge of the window.
func (c *Cache) generateLeadingEdge() {
	target := c.RoundToStep(time.Now().Add(c.config.Horizon))
	if c.generateFrame(target) {
		c.logger.Debug("leading edge generated", "timestamp", target.Format(time.RFC3339))
	}
}
