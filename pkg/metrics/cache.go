package metrics

import "sync/atomic"

// CacheMetric counts hits and misses of a named cache.
type CacheMetric struct {
	name   string
	hits   atomic.Int64
	misses atomic.Int64
}

func newCacheMetric(name string) *CacheMetric {
	return &CacheMetric{name: name}
}

// Hit records a cache hit.
func (c *CacheMetric) Hit() {
	if Enabled() {
		c.hits.Add(1)
	}
}

// Miss records a cache miss.
func (c *CacheMetric) Miss() {
	if Enabled() {
		c.misses.Add(1)
	}
}

// Stats returns a snapshot of the cache counters.
func (c *CacheMetric) Stats() CacheStats {
	h, m := c.hits.Load(), c.misses.Load()
	var rate float64
	if h+m > 0 {
		rate = float64(h) / float64(h+m)
	}
	return CacheStats{Name: c.name, Hits: h, Misses: m, HitRate: rate}
}

// Reset clears the counters.
func (c *CacheMetric) Reset() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// CacheStats holds a snapshot of cache counters.
type CacheStats struct {
	Name    string  `json:"name"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// RenderCache tracks the TUI's rendered-markdown cache.
var RenderCache = newCacheMetric("render_cache")

// AllCacheMetrics returns all registered cache metrics.
func AllCacheMetrics() []*CacheMetric {
	return []*CacheMetric{RenderCache}
}

// AllCacheStats returns stats for the cache metrics that saw traffic.
func AllCacheStats() []CacheStats {
	var out []CacheStats
	for _, c := range AllCacheMetrics() {
		if s := c.Stats(); s.Hits+s.Misses > 0 {
			out = append(out, s)
		}
	}
	return out
}
