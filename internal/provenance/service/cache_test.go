package service

import (
	"testing"
	"time"
)

func TestResultCache_PutGet(t *testing.T) {
	c := newResultCache(time.Minute)
	c.put(cacheKeyProducts, "payload")

	v, ok := c.get(cacheKeyProducts)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if v.(string) != "payload" {
		t.Errorf("got %v", v)
	}
	if _, ok := c.get(cacheKeyEvents); ok {
		t.Error("expected miss for a never-written key")
	}
}

func TestResultCache_TTLExpiry(t *testing.T) {
	c := newResultCache(time.Minute)
	base := time.Unix(1700000000, 0)
	now := base
	c.now = func() time.Time { return now }

	c.put(cacheKeyProducts, 1)

	now = base.Add(59 * time.Second)
	if _, ok := c.get(cacheKeyProducts); !ok {
		t.Error("entry inside the TTL window must hit")
	}

	now = base.Add(time.Minute)
	if _, ok := c.get(cacheKeyProducts); ok {
		t.Error("entry at exactly the TTL boundary must miss")
	}
}

func TestResultCache_InvalidateAll(t *testing.T) {
	c := newResultCache(time.Minute)
	c.put(cacheKeyProducts, 1)
	c.put(cacheKeyEvents, 2)
	c.put(cacheKeyStats, 3)
	if c.size() != 3 {
		t.Fatalf("size: got %d, want 3", c.size())
	}

	c.invalidateAll()

	if c.size() != 0 {
		t.Errorf("size after invalidation: got %d, want 0", c.size())
	}
	if _, ok := c.get(cacheKeyProducts); ok {
		t.Error("expected miss after invalidateAll")
	}
}

func TestResultCache_DisabledTTL(t *testing.T) {
	c := newResultCache(0)
	c.put(cacheKeyProducts, 1)
	if _, ok := c.get(cacheKeyProducts); ok {
		t.Error("a non-positive TTL disables caching entirely")
	}
}
