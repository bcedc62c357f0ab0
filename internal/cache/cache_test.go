package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T) (*Cache[string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return New[string](WithClock(clock.Now)), clock
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("key1", "value1")
	got, found := c.Get("key1")
	if !found || got != "value1" {
		t.Errorf("expected value1, got %q (found=%v)", got, found)
	}

	c.Set("key1", "value2")
	got, found = c.Get("key1")
	if !found || got != "value2" {
		t.Errorf("expected overwrite to value2, got %q (found=%v)", got, found)
	}
}

func TestCache_NonPositiveTTLIsExpired(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
	}{
		{name: "zero", ttl: 0},
		{name: "negative", ttl: -time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCache(t)
			c.SetTTL("k", "v", tt.ttl)
			if _, found := c.Get("k"); found {
				t.Errorf("expected entry with ttl %v to be absent", tt.ttl)
			}
			if c.Contains("k") {
				t.Errorf("Contains should agree with Get")
			}
		})
	}
}

func TestCache_Expiration(t *testing.T) {
	c, clock := newTestCache(t)
	c.SetTTL("k", "v", time.Minute)

	clock.Advance(59 * time.Second)
	if _, found := c.Get("k"); !found {
		t.Fatalf("expected entry to be live before expiry")
	}

	// Exactly at the expiration instant the entry is gone.
	clock.Advance(time.Second)
	if _, found := c.Get("k"); found {
		t.Errorf("expected entry to be absent at its expiration instant")
	}
}

func TestCache_DefaultTTL(t *testing.T) {
	c, clock := newTestCache(t)
	c.Set("k", "v")

	clock.Advance(DefaultTTL - time.Nanosecond)
	if !c.Contains("k") {
		t.Fatalf("expected entry to live for the default TTL")
	}
	clock.Advance(time.Nanosecond)
	if c.Contains("k") {
		t.Errorf("expected entry to expire after the default TTL")
	}
}

func TestCache_Remove(t *testing.T) {
	c, _ := newTestCache(t)
	c.Set("k", "v")
	c.Remove("k")
	if _, found := c.Get("k"); found {
		t.Errorf("expected removed key to be absent")
	}

	// idempotent
	c.Remove("k")
	c.Remove("never-set")
}

func TestCache_Prune(t *testing.T) {
	c, clock := newTestCache(t)
	c.SetTTL("short", "a", time.Second)
	c.SetTTL("long", "b", time.Hour)

	clock.Advance(2 * time.Second)
	if removed := c.Prune(); removed != 1 {
		t.Errorf("expected 1 pruned entry, got %d", removed)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 remaining entry, got %d", c.Len())
	}
	if _, found := c.Get("long"); !found {
		t.Errorf("expected long-lived entry to survive pruning")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := GuildKey("g")
				c.Set(key, i*j)
				c.Get(key)
				if j%50 == 0 {
					c.Remove(key)
					c.Prune()
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestKeys(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{ServerKey(12), "SERVER_12"},
		{GuildKey("123456789"), "GUILD_123456789"},
		{UserKey(2), "USER_2"},
		{RolesKey(3), "ROLES_3"},
		{OsuAPIKey(727), "OSU_API_727"},
		{OsuStatsKey("peppy", 50), "OSU_STATS_peppy_50"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
