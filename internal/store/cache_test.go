package store

import (
	"testing"
	"time"
)

func TestCacheExpiry(t *testing.T) {
	c := NewCache()
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Set("note:ab123", "hello", time.Minute)
	if v, ok := c.Get("note:ab123"); !ok || v != "hello" {
		t.Fatalf("Get = %v, %v", v, ok)
	}

	clock = clock.Add(59 * time.Second)
	if _, ok := c.Get("note:ab123"); !ok {
		t.Fatal("entry expired early")
	}

	clock = clock.Add(2 * time.Second)
	if _, ok := c.Get("note:ab123"); ok {
		t.Fatal("entry still live past its TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not evicted, Len = %d", c.Len())
	}
}

func TestCachePrefixInvalidation(t *testing.T) {
	c := NewCache()
	c.Set("note:ab123", 1, time.Hour)
	c.Set("note:cd456", 2, time.Hour)
	c.Set("list_notes:10", 3, time.Hour)

	c.Invalidate("note:")
	if _, ok := c.Get("note:ab123"); ok {
		t.Error("note:ab123 survived prefix invalidation")
	}
	if _, ok := c.Get("note:cd456"); ok {
		t.Error("note:cd456 survived prefix invalidation")
	}
	if _, ok := c.Get("list_notes:10"); !ok {
		t.Error("list_notes:10 was wrongly evicted")
	}
}

func TestCacheInvalidateAll(t *testing.T) {
	c := NewCache()
	c.Set("a", 1, time.Hour)
	c.Set("b", 2, time.Hour)

	c.Invalidate("")
	if c.Len() != 0 {
		t.Errorf("Len = %d after full invalidation", c.Len())
	}
}

func TestCacheOverwrite(t *testing.T) {
	c := NewCache()
	c.Set("k", "old", time.Hour)
	c.Set("k", "new", time.Hour)
	if v, _ := c.Get("k"); v != "new" {
		t.Errorf("Get = %v, want new", v)
	}
}
