package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(maxSize int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](maxSize, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	var evicted []string
	c.OnEvict(func(key string, _ string) { evicted = append(evicted, key) })

	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be present")
	}
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Errorf("unexpected evictions: %v", evicted)
	}
}

func TestLRUCache_SlidingExpiry(t *testing.T) {
	c, clock := newTestCache(10, 10*time.Minute)
	c.Set("run", "x")

	clock.advance(8 * time.Minute)
	if _, ok := c.Get("run"); !ok {
		t.Fatal("expected entry before ttl")
	}
	clock.advance(8 * time.Minute)
	if _, ok := c.Get("run"); !ok {
		t.Fatal("expected read to extend expiry")
	}
	clock.advance(11 * time.Minute)
	if _, ok := c.Get("run"); ok {
		t.Fatal("expected entry to expire when idle")
	}
}

func TestLRUCache_GetOrCreate(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	calls := 0
	create := func() string {
		calls++
		return "fresh"
	}

	if got := c.GetOrCreate("k", create); got != "fresh" {
		t.Errorf("unexpected value %q", got)
	}
	c.GetOrCreate("k", create)
	if calls != 1 {
		t.Errorf("expected one create, got %d", calls)
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "1")
	clock.advance(30 * time.Second)
	c.Set("b", "2")
	clock.advance(45 * time.Second)

	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to survive")
	}
}

func TestJanitor_Sweep(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "1")
	clock.advance(2 * time.Minute)

	j := NewJanitor(nil)
	j.Register(c)
	if got := j.Sweep(); got != 1 {
		t.Errorf("expected 1 swept, got %d", got)
	}
	j.Start(time.Hour)
	j.Stop()
	j.Stop()
}
