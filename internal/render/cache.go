package render

import (
	"image"
	"sync"
	"time"
)

// DefaultCacheCapacity is the default number of decoded tiles kept in memory.
const DefaultCacheCapacity = 150

// CacheKey identifies one cached tile.
type CacheKey struct {
	CanvasID string
	Z, X, Y  int
}

// CachedTile is a decoded tile image plus its load timestamp.
type CachedTile struct {
	Image    image.Image
	LoadedAt time.Time
}

type cacheEntry struct {
	tile CachedTile
	seq  uint64
}

// TileCache is a bounded in-memory tile store. Eviction is strict LRU by load
// recency: inserting a new key at capacity removes the entry with the oldest
// load timestamp. Updating an existing key refreshes its timestamp and never
// evicts. The cache is an explicit dependency, constructed once and injected.
type TileCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[CacheKey]*cacheEntry
	nextSeq  uint64
}

// NewTileCache creates a cache holding at most capacity tiles; capacity <= 0
// falls back to the default.
func NewTileCache(capacity int) *TileCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &TileCache{
		capacity: capacity,
		entries:  make(map[CacheKey]*cacheEntry, capacity),
	}
}

// Get returns the cached tile for key, if present.
func (c *TileCache) Get(key CacheKey) (CachedTile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return CachedTile{}, false
	}
	return e.tile, true
}

// Set stores a tile. A new key inserted at capacity first evicts the entry
// with the oldest load timestamp.
func (c *TileCache) Set(key CacheKey, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if e, ok := c.entries[key]; ok {
		e.tile = CachedTile{Image: img, LoadedAt: now}
		e.seq = c.nextSeq
		c.nextSeq++
		return
	}

	if len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = &cacheEntry{
		tile: CachedTile{Image: img, LoadedAt: now},
		seq:  c.nextSeq,
	}
	c.nextSeq++
}

// evictOldestLocked removes the single entry with the smallest load sequence.
// The sequence breaks ties between timestamps from the same clock tick.
func (c *TileCache) evictOldestLocked() {
	var (
		oldest CacheKey
		found  bool
		minSeq uint64
	)
	for k, e := range c.entries {
		if !found || e.seq < minSeq {
			oldest, minSeq, found = k, e.seq, true
		}
	}
	if found {
		delete(c.entries, oldest)
	}
}

// ClearCanvas removes every entry belonging to one canvas.
func (c *TileCache) ClearCanvas(canvasID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.CanvasID == canvasID {
			delete(c.entries, k)
		}
	}
}

// Clear removes everything.
func (c *TileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[CacheKey]*cacheEntry, c.capacity)
}

// Len reports the number of cached tiles.
func (c *TileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
