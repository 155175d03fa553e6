// internal/cache/lru_test.go

package cache

import (
	"testing"
	"time"
)

func TestLRUEvictsLeastRecent(t *testing.T) {
	c := New[int, string](2, 0)
	c.Add(1, "a")
	c.Add(2, "b")
	c.Get(1) // 2 is now the oldest
	c.Add(3, "c")

	if _, ok := c.Get(2); ok {
		t.Error("entry 2 survived eviction")
	}
	if v, ok := c.Get(1); !ok || v != "a" {
		t.Errorf("Get(1) = %q, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := New[string, int](4, time.Minute)
	c.now = func() time.Time { return now }

	c.Add("k", 1)
	now = now.Add(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired early")
	}
	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry outlived its ttl")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed, Len = %d", c.Len())
	}
}

func TestLRURemove(t *testing.T) {
	c := New[int, int](2, 0)
	c.Add(1, 1)
	c.Remove(1)
	c.Remove(7)
	if _, ok := c.Get(1); ok {
		t.Fatal("removed entry still present")
	}
}
