package transcode

// Snapshot is a point-in-time view of engine, pool and cache counters,
// intended for an external metrics or logging consumer. Counters are read
// atomically but the snapshot as a whole is not a consistent cut.
type Snapshot struct {
	// ActiveBuffers is the number of pool slots currently leased.
	ActiveBuffers int

	// TotalConversions counts Convert calls served, including failures.
	TotalConversions uint64

	PoolHits      uint64  // Acquisitions served from a pooled slot.
	PoolFallbacks uint64  // Acquisitions served by a private fallback buffer.
	PoolHitRate   float64 // PoolHits / (PoolHits + PoolFallbacks).

	CacheSize       int
	CacheHits       uint64
	CacheMisses     uint64
	CacheEvictions  uint64
	CacheHitRate    float64 // CacheHits / (CacheHits + CacheMisses).
	AvgHitsPerEntry float64 // Mean per-descriptor hit count across live entries.
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Snapshot {
	s := Snapshot{
		ActiveBuffers:    e.pool.active(),
		TotalConversions: e.totalConversions.Load(),
		PoolHits:         e.pool.hits.Load(),
		PoolFallbacks:    e.pool.fallbacks.Load(),
		CacheSize:        e.cache.size(),
		CacheHits:        e.cache.hits.Load(),
		CacheMisses:      e.cache.misses.Load(),
		CacheEvictions:   e.cache.evictions.Load(),
	}
	if total := s.PoolHits + s.PoolFallbacks; total > 0 {
		s.PoolHitRate = float64(s.PoolHits) / float64(total)
	}
	if total := s.CacheHits + s.CacheMisses; total > 0 {
		s.CacheHitRate = float64(s.CacheHits) / float64(total)
	}
	if hits, entries := e.cache.totalHitsPerEntry(); entries > 0 {
		s.AvgHitsPerEntry = float64(hits) / float64(entries)
	}
	return s
}
