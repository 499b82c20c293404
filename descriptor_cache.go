package transcode

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// cacheShardCount must be a power of two for unbiased modulo.
const cacheShardCount = 8

func cacheShardIndex(h uint64) uint64 {
	// Faster modulo via bitwise AND; requires cacheShardCount to be a power of two.
	return h & (cacheShardCount - 1)
}

// descriptor owns one shared conversion transformer for an encoding pair.
//
// The transformer may carry shift state between Transform calls, so two
// conversions must never drive it concurrently: callers hold mu for the full
// duration of a transcode, and Reset it before use. Eviction only removes the
// descriptor from future lookups; a conversion already holding a reference
// keeps using it safely.
type descriptor struct {
	// mu serializes transcoding calls sharing this descriptor.
	mu sync.Mutex
	tr transform.Transformer

	lastUsed  atomic.Int64 // Unix nanos, refreshed on every hit.
	hits      atomic.Uint64
	insertSeq uint64 // Insertion order within the shard, for batch eviction.
}

func (d *descriptor) touch() {
	d.lastUsed.Store(time.Now().UnixNano())
	d.hits.Add(1)
}

type cacheShard struct {
	mu      sync.RWMutex
	entries map[string]*descriptor
	seq     uint64 // Insertion counter, guarded by mu.
}

// descriptorCache maps encoding pairs to shared conversion descriptors.
// Keys are routed to shards by xxhash so readers of distinct pairs rarely
// contend; within a shard, lookups take the read lock and only a miss
// upgrades to the write lock.
type descriptorCache struct {
	registry Registry
	logger   *zap.Logger

	// shardCap bounds each shard; the cache as a whole never exceeds
	// shardCap × cacheShardCount entries.
	shardCap int

	shards [cacheShardCount]cacheShard

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func newDescriptorCache(registry Registry, maxSize int, logger *zap.Logger) *descriptorCache {
	c := &descriptorCache{
		registry: registry,
		logger:   logger,
		shardCap: max(1, maxSize/cacheShardCount),
	}
	for i := range c.shards {
		c.shards[i].entries = make(map[string]*descriptor)
	}
	return c
}

func cacheKey(fromEncoding, toEncoding string) string {
	return fromEncoding + ">" + toEncoding
}

// get returns the shared descriptor for the pair, opening and caching a new
// one on first use. Open failures are returned as *LookupError and are not
// cached; a later call with the same pair retries.
func (c *descriptorCache) get(fromEncoding, toEncoding string) (*descriptor, error) {
	key := cacheKey(fromEncoding, toEncoding)
	shard := &c.shards[cacheShardIndex(xxhash.Sum64String(key))]

	// Fast read path: most pairs are already cached in steady state.
	shard.mu.RLock()
	if d, ok := shard.entries[key]; ok {
		shard.mu.RUnlock()
		d.touch()
		c.hits.Add(1)
		return d, nil
	}
	shard.mu.RUnlock()
	c.misses.Add(1)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	// Double-check: another conversion may have opened the pair while we
	// were waiting for the write lock.
	if d, ok := shard.entries[key]; ok {
		d.touch()
		return d, nil
	}

	tr, err := c.open(fromEncoding, toEncoding)
	if err != nil {
		return nil, err
	}

	if len(shard.entries) >= c.shardCap {
		c.evictOldest(shard)
	}

	shard.seq++
	d := &descriptor{tr: tr, insertSeq: shard.seq}
	d.lastUsed.Store(time.Now().UnixNano())
	shard.entries[key] = d
	c.logger.Debug("opened conversion descriptor", zap.String("pair", key))
	return d, nil
}

// open builds the transformer chain for the pair: source decoder into target
// encoder. A UTF-8 source is prefixed with a validator so malformed input
// fails instead of turning into replacement runes.
func (c *descriptorCache) open(fromEncoding, toEncoding string) (transform.Transformer, error) {
	src, err := c.registry.Encoding(fromEncoding)
	if err != nil {
		return nil, &LookupError{Name: fromEncoding, Err: err}
	}
	dst, err := c.registry.Encoding(toEncoding)
	if err != nil {
		return nil, &LookupError{Name: toEncoding, Target: true, Err: err}
	}

	links := make([]transform.Transformer, 0, 3)
	if isUTF8Name(fromEncoding) {
		links = append(links, encoding.UTF8Validator)
	}
	links = append(links, src.NewDecoder(), dst.NewEncoder())
	return transform.Chain(links...), nil
}

// evictOldest removes the oldest-inserted half of the shard in one batch.
// Coarse but amortized: eviction is O(n log n) on shard size and infrequent.
// Descriptors held by in-flight conversions stay valid after removal.
// The caller must hold the shard's write lock.
func (c *descriptorCache) evictOldest(shard *cacheShard) {
	if len(shard.entries) == 0 {
		return
	}
	type aged struct {
		key string
		seq uint64
	}
	entries := make([]aged, 0, len(shard.entries))
	for key, d := range shard.entries {
		entries = append(entries, aged{key, d.insertSeq})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	toRemove := max(1, len(entries)/2)
	for _, e := range entries[:toRemove] {
		delete(shard.entries, e.key)
		c.evictions.Add(1)
	}
	c.logger.Debug("evicted descriptor batch", zap.Int("count", toRemove))
}

// clear drops every cached descriptor. In-flight conversions holding a
// descriptor are unaffected.
func (c *descriptorCache) clear() {
	for i := range c.shards {
		shard := &c.shards[i]
		shard.mu.Lock()
		shard.entries = make(map[string]*descriptor)
		shard.mu.Unlock()
	}
}

// size returns the number of cached descriptors.
func (c *descriptorCache) size() int {
	n := 0
	for i := range c.shards {
		shard := &c.shards[i]
		shard.mu.RLock()
		n += len(shard.entries)
		shard.mu.RUnlock()
	}
	return n
}

// totalHitsPerEntry returns the sum of per-entry hit counters and the entry
// count, for deriving the average hit count per descriptor.
func (c *descriptorCache) totalHitsPerEntry() (hits uint64, entries int) {
	for i := range c.shards {
		shard := &c.shards[i]
		shard.mu.RLock()
		for _, d := range shard.entries {
			hits += d.hits.Load()
			entries++
		}
		shard.mu.RUnlock()
	}
	return hits, entries
}

func isUTF8Name(name string) bool {
	switch normalizeEncodingName(name) {
	case "UTF-8", "UTF8", "CP65001", "65001":
		return true
	}
	return false
}
