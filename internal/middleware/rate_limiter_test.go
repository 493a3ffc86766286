package middleware

import (
	"testing"
	"time"
)

func TestIPRateLimiterEnforcesBurst(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Hour, 2, time.Hour)

	if !limiter.Allow("1.2.3.4") || !limiter.Allow("1.2.3.4") {
		t.Fatal("expected the burst capacity to be granted")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("expected the third request to be rejected")
	}

	// A different key gets its own bucket.
	if !limiter.Allow("5.6.7.8") {
		t.Fatal("expected an unrelated key to be allowed")
	}
}

func TestIPRateLimiterExpiresStaleBuckets(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Hour, 1, time.Minute).(*ipRateLimiter)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter.WithNowFunc(func() time.Time { return current })

	if !limiter.Allow("1.2.3.4") {
		t.Fatal("expected first request to be allowed")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("expected second request to be rejected")
	}

	// After the ttl the key is forgotten; note the token bucket itself also
	// refills over wall-clock time, so only the map entry is asserted here.
	current = current.Add(2 * time.Minute)
	limiter.Allow("9.9.9.9")

	limiter.mu.Lock()
	_, ok := limiter.buckets["1.2.3.4"]
	limiter.mu.Unlock()
	if ok {
		t.Fatal("expected stale bucket to be expired")
	}
}
