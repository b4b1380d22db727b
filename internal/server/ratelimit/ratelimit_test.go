package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig(endpoints ...EndpointConfig) *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    5,
		DefaultWindow:   time.Minute,
		Whitelist:       map[string]bool{"10.0.0.1": true},
		Blacklist:       map[string]bool{"10.0.0.2": true},
		EndpointConfigs: endpoints,
	}
}

func TestTokenBucket_TakeAndRefill(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(3, 1.0, clock.Now())

	for i := 0; i < 3; i++ {
		if ok, _, _ := bucket.take(clock.Now()); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if ok, remaining, _ := bucket.take(clock.Now()); ok || remaining != 0 {
		t.Fatalf("4th request: allowed=%v remaining=%d, want denied with 0", ok, remaining)
	}
	if d := bucket.nextToken(); d != time.Second {
		t.Errorf("nextToken = %v, want 1s", d)
	}

	clock.Advance(1100 * time.Millisecond)
	if ok, _, _ := bucket.take(clock.Now()); !ok {
		t.Error("request after refill should be allowed")
	}
	if ok, _, _ := bucket.take(clock.Now()); ok {
		t.Error("refilled token should already be spent")
	}
}

func TestTokenBucket_ResetTime(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(10, 1.0, clock.Now())

	var resetAt time.Time
	for i := 0; i < 5; i++ {
		_, _, resetAt = bucket.take(clock.Now())
	}
	if want := clock.Now().Add(5 * time.Second); !resetAt.Equal(want) {
		t.Errorf("resetAt = %v, want %v", resetAt, want)
	}
}

func TestLimiter_TriggerEndpoints(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(testConfig(DefaultEndpointConfigs()...), clock.Now)
	defer l.Stop()

	ok, info := l.Allow("192.168.1.1", "/api/companies/update-all", "POST")
	if !ok || info.Limit != 6 || info.Remaining != 0 {
		t.Fatalf("first batch trigger: ok=%v info=%+v", ok, info)
	}
	ok, info = l.Allow("192.168.1.1", "/api/companies/update-all", "POST")
	if ok {
		t.Fatal("second batch trigger within burst should be denied")
	}
	if info.RetryAfter < 10*time.Minute-time.Millisecond || info.RetryAfter > 10*time.Minute {
		t.Errorf("RetryAfter = %v, want about 10m", info.RetryAfter)
	}

	// GET and POST are limited separately.
	if ok, _ := l.Allow("192.168.1.1", "/api/companies/update-all", "GET"); !ok {
		t.Error("GET trigger has its own bucket")
	}
	// Other clients are unaffected.
	if ok, _ := l.Allow("192.168.1.9", "/api/companies/update-all", "POST"); !ok {
		t.Error("other client should be allowed")
	}

	clock.Advance(11 * time.Minute)
	if ok, _ := l.Allow("192.168.1.1", "/api/companies/update-all", "POST"); !ok {
		t.Error("trigger should be allowed after refill")
	}
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	l := newLimiter(testConfig(DefaultEndpointConfigs()...), newFakeClock().Now)
	defer l.Stop()

	for i := 0; i < 100; i++ {
		if ok, info := l.Allow("192.168.1.1", "/health", "GET"); !ok || info.Limit != 0 {
			t.Fatalf("health request %d limited: %+v", i, info)
		}
	}
}

func TestLimiter_DefaultLimit(t *testing.T) {
	l := newLimiter(testConfig(), newFakeClock().Now)
	defer l.Stop()

	for i := 0; i < 5; i++ {
		if ok, _ := l.Allow("192.168.1.1", "/other", "GET"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if ok, _ := l.Allow("192.168.1.1", "/other", "GET"); ok {
		t.Error("6th request should exceed the default limit")
	}
}

func TestLimiter_WhitelistBlacklist(t *testing.T) {
	l := newLimiter(testConfig(EndpointConfig{Path: "/x", Method: "GET", Limit: 1, Window: time.Hour}), newFakeClock().Now)
	defer l.Stop()

	for i := 0; i < 10; i++ {
		if ok, _ := l.Allow("10.0.0.1", "/x", "GET"); !ok {
			t.Fatal("whitelisted client should never be limited")
		}
	}
	if ok, _ := l.Allow("10.0.0.2", "/health", "GET"); ok {
		t.Error("blacklisted client should always be denied")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(&Config{Enabled: false})
	defer l.Stop()

	for i := 0; i < 50; i++ {
		if ok, _ := l.Allow("192.168.1.1", "/api/companies/update-all", "POST"); !ok {
			t.Fatal("disabled limiter should allow everything")
		}
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l := newLimiter(testConfig(EndpointConfig{Path: "/x", Method: "POST", Limit: 50, Window: time.Hour}), newFakeClock().Now)
	defer l.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("192.168.1.1", "/x", "POST"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed %d concurrent requests, want 50", allowed)
	}
}

func TestLimiter_EvictIdle(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(testConfig(), clock.Now)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		l.Allow(fmt.Sprintf("192.168.1.%d", i), "/other", "GET")
	}
	clock.Advance(30 * time.Minute)
	l.Allow("192.168.1.0", "/other", "GET")
	clock.Advance(31 * time.Minute)

	if n := l.evictIdle(); n != 2 {
		t.Errorf("evicted %d buckets, want 2", n)
	}
	if len(l.buckets) != 1 {
		t.Errorf("%d buckets left, want 1", len(l.buckets))
	}
}

func TestLimiter_StopIdempotent(t *testing.T) {
	cfg := testConfig()
	cfg.CleanupInterval = time.Millisecond
	l := NewLimiter(cfg)
	l.Stop()
	l.Stop()
}

func TestLoadConfigFrom(t *testing.T) {
	env := map[string]string{
		"RATE_LIMIT_DEFAULT_LIMIT":  "42",
		"RATE_LIMIT_WHITELIST":      "1.1.1.1, 2.2.2.2,",
		"RATE_LIMIT_DEFAULT_WINDOW": "not-a-duration",
	}
	cfg := LoadConfigFrom(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	if !cfg.Enabled || cfg.DefaultLimit != 42 || cfg.DefaultWindow != time.Minute {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if len(cfg.Whitelist) != 2 || !cfg.Whitelist["2.2.2.2"] {
		t.Errorf("whitelist = %v", cfg.Whitelist)
	}

	disabled := LoadConfigFrom(func(k string) (string, bool) {
		if k == "RATE_LIMIT_ENABLED" {
			return "false", true
		}
		return "", false
	})
	if disabled.Enabled {
		t.Error("RATE_LIMIT_ENABLED=false should disable limiting")
	}
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/api/", Method: "POST", Limit: 1},
		{Path: "/api/companies/update", Method: "POST", Limit: 2},
	}
	if c := MatchEndpoint("/api/companies/update", "POST", configs); c == nil || c.Limit != 2 {
		t.Errorf("exact match should win, got %+v", c)
	}
	if c := MatchEndpoint("/api/other", "POST", configs); c == nil || c.Limit != 1 {
		t.Errorf("prefix match expected, got %+v", c)
	}
	if c := MatchEndpoint("/api/other", "GET", configs); c != nil {
		t.Errorf("method mismatch should not match, got %+v", c)
	}
}
