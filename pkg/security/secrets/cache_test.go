package secrets

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestCache(cfg CacheConfig) (*Cache, *time.Time) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache(cfg)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCache_GetSet(t *testing.T) {
	c, _ := newTestCache(CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: 10})

	c.Set("openai-api-key", "sk-1")
	if v, ok := c.Get("openai-api-key"); !ok || v != "sk-1" {
		t.Errorf("expected hit, got %q %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss")
	}
}

func TestCache_Expiry(t *testing.T) {
	c, now := newTestCache(CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: 10})

	c.Set("k", "v")
	*now = now.Add(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Error("expected entry before TTL")
	}
	*now = now.Add(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire exactly at TTL")
	}
}

func TestCache_MaxSize(t *testing.T) {
	c, now := newTestCache(CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: 2})

	c.Set("a", "1")
	*now = now.Add(time.Second)
	c.Set("b", "2")
	*now = now.Add(time.Second)
	c.Set("c", "3")

	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected newest entry present")
	}

	// Overwriting an existing key does not evict.
	c.Set("b", "2b")
	if _, ok := c.Get("c"); !ok {
		t.Error("overwrite evicted another entry")
	}
}

func TestCache_DeleteClear(t *testing.T) {
	c, _ := newTestCache(CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: 10})
	c.Set("a", "1")
	c.Set("b", "2")

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected a deleted")
	}
	c.Clear()
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got %d", c.Size())
	}
}

func TestCache_Disabled(t *testing.T) {
	c := NewCache(CacheConfig{Enabled: false, TTL: time.Minute})
	c.Set("a", "1")
	if _, ok := c.Get("a"); ok {
		t.Error("disabled cache returned a value")
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache(CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: 50})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i+j)%60)
				c.Set(key, "v")
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Size() > 50 {
		t.Errorf("cache grew past MaxSize: %d", c.Size())
	}
}
