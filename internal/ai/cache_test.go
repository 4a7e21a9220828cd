package ai

import (
	"fmt"
	"testing"
	"time"
)

func newTestCache(maxSize int, ttl time.Duration) (*Cache, *time.Time) {
	c := NewCache(maxSize, ttl, true)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCacheSetGet(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)

	vector := []float32{0.1, 0.2, 0.3}
	c.Set("hello world", vector)

	got, ok := c.Get("hello world")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if len(got) != 3 || got[0] != 0.1 || got[1] != 0.2 || got[2] != 0.3 {
		t.Errorf("got %v, want %v", got, vector)
	}

	// Returned slice is a copy; mutating it must not poison the cache.
	got[0] = 99
	again, _ := c.Get("hello world")
	if again[0] != 0.1 {
		t.Errorf("cache entry mutated through returned slice: %v", again[0])
	}
}

func TestCacheKeyNormalization(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	c.Set("Hello World", []float32{1})

	tests := []string{"hello world", "  Hello World  ", "HELLO WORLD", "hello world\n"}
	for _, text := range tests {
		if _, ok := c.Get(text); !ok {
			t.Errorf("Get(%q) missed, want hit on normalized key", text)
		}
	}

	if _, ok := c.Get("hello  world"); ok {
		t.Error("interior whitespace should not normalize to the same key")
	}
}

func TestCacheExpiry(t *testing.T) {
	c, now := newTestCache(10, time.Hour)
	c.Set("stale", []float32{1})

	if c.Stats().Size != 1 {
		t.Fatalf("size = %d, want 1", c.Stats().Size)
	}

	*now = now.Add(time.Hour + time.Second)
	if _, ok := c.Get("stale"); ok {
		t.Error("expected miss for expired entry")
	}
	if c.Stats().Size != 0 {
		t.Errorf("expired entry not purged, size = %d", c.Stats().Size)
	}
}

func TestCacheLRUEviction(t *testing.T) {
	c, now := newTestCache(3, time.Hour)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("key-%d", i), []float32{float32(i)})
		*now = now.Add(time.Second)
	}

	// Touch key-0 so key-1 becomes the least recently used.
	if _, ok := c.Get("key-0"); !ok {
		t.Fatal("key-0 should be present")
	}
	*now = now.Add(time.Second)

	c.Set("key-3", []float32{3})

	if c.Stats().Size != 3 {
		t.Fatalf("size = %d, want 3", c.Stats().Size)
	}
	if _, ok := c.Get("key-1"); ok {
		t.Error("key-1 should have been evicted as least recently used")
	}
	for _, key := range []string{"key-0", "key-2", "key-3"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("%s should have survived eviction", key)
		}
	}
}

func TestCacheSetRefreshesRecency(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	// Re-setting a makes b the least recently used.
	c.Set("a", []float32{3})
	c.Set("c", []float32{4})

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted as least recently used")
	}
	for _, key := range []string{"a", "c"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("%s should have survived eviction", key)
		}
	}
}

func TestCacheOverwriteDoesNotEvict(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Set("a", []float32{3})

	if c.Stats().Size != 2 {
		t.Errorf("size = %d, want 2", c.Stats().Size)
	}
	got, ok := c.Get("a")
	if !ok || got[0] != 3 {
		t.Errorf("Get(a) = %v, %v; want updated value 3", got, ok)
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b should not have been evicted by overwriting a")
	}
}

func TestCacheDisabled(t *testing.T) {
	c := NewCache(10, time.Hour, false)
	c.Set("x", []float32{1})
	if _, ok := c.Get("x"); ok {
		t.Error("disabled cache should always miss")
	}
	if c.Stats().Size != 0 {
		t.Errorf("disabled cache stored an entry, size = %d", c.Stats().Size)
	}
}

func TestCacheBlankText(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	c.Set("", []float32{1})
	c.Set("   ", []float32{2})
	if c.Stats().Size != 0 {
		t.Errorf("blank text stored, size = %d", c.Stats().Size)
	}
	if _, ok := c.Get(""); ok {
		t.Error("Get(\"\") should miss")
	}
}

func TestCacheClearAndStats(t *testing.T) {
	c, _ := newTestCache(5, 30*time.Minute)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})

	stats := c.Stats()
	if stats.Size != 2 || stats.MaxSize != 5 || !stats.Enabled || stats.TTL != 30*time.Minute {
		t.Errorf("unexpected stats: %+v", stats)
	}

	c.Clear()
	if c.Stats().Size != 0 {
		t.Errorf("size after Clear = %d, want 0", c.Stats().Size)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("entry survived Clear")
	}
}
