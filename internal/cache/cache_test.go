package cache

import (
	"testing"
	"time"
)

func TestRoundTrip(t *testing.T) {
	c := New(DefaultTTL)

	value := []string{"a", "b"}
	c.Put("key", value)

	got, ok := c.Get("key")
	if !ok {
		t.Fatalf("expected a hit")
	}
	if gotSlice, ok := got.([]string); !ok || len(gotSlice) != 2 || gotSlice[0] != "a" {
		t.Fatalf("unexpected cached value: %#v", got)
	}
}

func TestMissOnUnknownKey(t *testing.T) {
	c := New(DefaultTTL)

	if _, ok := c.Get("nope"); ok {
		t.Fatalf("expected a miss")
	}
}

func TestExpiryIsLazy(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	c := New(DefaultTTL)
	c.now = func() time.Time { return now }

	c.Put("key", "value")

	now = now.Add(DefaultTTL - time.Second)
	if _, ok := c.Get("key"); !ok {
		t.Fatalf("expected a hit just before the TTL")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("key"); ok {
		t.Fatalf("expected a miss after the TTL")
	}

	// The next write repopulates the slot.
	c.Put("key", "fresh")
	got, ok := c.Get("key")
	if !ok || got != "fresh" {
		t.Fatalf("expected repopulated value, got %#v (hit=%v)", got, ok)
	}
}

func TestClear(t *testing.T) {
	c := New(DefaultTTL)
	c.Put("a", 1)
	c.Put("b", 2)

	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to be gone")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be gone")
	}
}
