package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes text -> embedding results. Bounded LRU storage comes
// from hashicorp/golang-lru; entries additionally expire after a TTL,
// checked lazily on access so no background sweeper is needed.
//
// Keys are derived from the normalized text (trimmed, case-folded), so
// lookups that differ only in surrounding whitespace or letter case hit
// the same entry.
type Cache struct {
	lru     *lru.Cache[string, cacheEntry]
	maxSize int
	ttl     time.Duration
	enabled bool

	now func() time.Time // stubbed in tests
}

type cacheEntry struct {
	vector    []float32
	createdAt time.Time
}

// CacheStats is a point-in-time snapshot for observability.
type CacheStats struct {
	Size    int           `json:"size"`
	MaxSize int           `json:"max_size"`
	Enabled bool          `json:"enabled"`
	TTL     time.Duration `json:"ttl"`
}

// NewCache creates a cache holding at most maxSize entries, each valid
// for ttl after insertion. A disabled cache misses on every Get and
// ignores every Set.
func NewCache(maxSize int, ttl time.Duration, enabled bool) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	store, err := lru.New[string, cacheEntry](maxSize)
	if err != nil {
		// Unreachable with a positive size, but keep a usable cache.
		store, _ = lru.New[string, cacheEntry](1000)
	}
	return &Cache{
		lru:     store,
		maxSize: maxSize,
		ttl:     ttl,
		enabled: enabled,
		now:     time.Now,
	}
}

// Get returns the cached vector for text, refreshing its recency. An
// expired entry is purged and reported as a miss.
func (c *Cache) Get(text string) ([]float32, bool) {
	if !c.enabled || strings.TrimSpace(text) == "" {
		return nil, false
	}

	key := cacheKey(text)
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.createdAt) > c.ttl {
		c.lru.Remove(key)
		return nil, false
	}

	// Copy out so callers can't mutate the cached vector.
	vector := make([]float32, len(entry.vector))
	copy(vector, entry.vector)
	return vector, true
}

// Set stores the vector for text; the underlying store evicts the
// least recently used entry when at capacity.
func (c *Cache) Set(text string, vector []float32) {
	if !c.enabled || strings.TrimSpace(text) == "" {
		return
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)
	c.lru.Add(cacheKey(text), cacheEntry{vector: stored, createdAt: c.now()})
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Stats reports current cache state. It has no side effects.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Size:    c.lru.Len(),
		MaxSize: c.maxSize,
		Enabled: c.enabled,
		TTL:     c.ttl,
	}
}

func cacheKey(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
