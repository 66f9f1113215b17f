package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/codr1/courtside/internal/testutil"
)

func newTestLimiter(t *testing.T, perUser, perIP int) (*Limiter, testutil.FakeClock) {
	t.Helper()
	clk := testutil.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := New(&Config{
		Window:           time.Minute,
		MaxWritesPerUser: perUser,
		MaxWritesPerIP:   perIP,
		Clock:            clk,
	})
	t.Cleanup(limiter.Close)
	return limiter, clk
}

func TestAllow_UserLimit(t *testing.T) {
	limiter, clk := newTestLimiter(t, 2, 100)

	for i := 0; i < 2; i++ {
		if result := limiter.Allow("7", "203.0.113.1"); !result.Allowed {
			t.Fatalf("write %d should be allowed, got %s", i+1, result.Reason)
		}
	}

	clk.Advance(20 * time.Second)
	result := limiter.Allow("7", "203.0.113.1")
	if result.Allowed || result.Reason != "user_limit" {
		t.Fatalf("expected user_limit, got %+v", result)
	}
	if result.RetryAfter != 40*time.Second {
		t.Fatalf("expected 40s retry, got %v", result.RetryAfter)
	}

	if result := limiter.Allow("8", "203.0.113.1"); !result.Allowed {
		t.Fatalf("another caller should not share the limit, got %s", result.Reason)
	}

	clk.Advance(40 * time.Second)
	if result := limiter.Allow("7", "203.0.113.1"); !result.Allowed {
		t.Fatalf("expected a new window, got %s", result.Reason)
	}
}

func TestAllow_IPLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 100, 3)

	for i := 0; i < 3; i++ {
		if result := limiter.Allow("", "198.51.100.4"); !result.Allowed {
			t.Fatalf("write %d should be allowed, got %s", i+1, result.Reason)
		}
	}
	if result := limiter.Allow("9", "198.51.100.4"); result.Allowed || result.Reason != "ip_limit" {
		t.Fatalf("expected ip_limit, got %+v", result)
	}
	if result := limiter.Allow("", "198.51.100.5"); !result.Allowed {
		t.Fatalf("another IP should not share the limit, got %s", result.Reason)
	}
}

func TestAllow_DeniedWritesAreNotCounted(t *testing.T) {
	limiter, clk := newTestLimiter(t, 1, 100)

	limiter.Allow("7", "203.0.113.1")
	for i := 0; i < 5; i++ {
		limiter.Allow("7", "203.0.113.1")
	}

	clk.Advance(time.Minute)
	if result := limiter.Allow("7", "203.0.113.1"); !result.Allowed {
		t.Fatalf("expected allowed after window, got %s", result.Reason)
	}
}

func TestCleanupDropsIdleEntries(t *testing.T) {
	limiter, clk := newTestLimiter(t, 10, 10)
	limiter.Allow("7", "203.0.113.1")
	if limiter.size() != 2 {
		t.Fatalf("expected 2 tracked keys, got %d", limiter.size())
	}

	clk.Advance(2 * time.Minute)
	limiter.cleanup()
	if limiter.size() != 0 {
		t.Fatalf("expected idle keys to be dropped, got %d", limiter.size())
	}
}

func TestGetClientIP_TrustProxy(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		expected   string
	}{
		{
			name:       "XFF rightmost public IP",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.50",
		},
		{
			name:       "XFF all private",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "10.0.0.1",
		},
		{
			name:       "X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.51",
		},
		{
			name:       "untrusted proxy ignores XFF",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50"},
			remoteAddr: "192.168.1.100:54321",
			expected:   "192.168.1.100",
		},
		{
			name:       "RemoteAddr without port",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.100",
			expected:   "192.168.1.100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest("POST", "/api/v1/bookings", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			if got := GetClientIP(r, tt.trustProxy); got != tt.expected {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"10.0.0.1", true},
		{"172.31.255.255", true},
		{"192.168.1.1", true},
		{"::1", true},
		{"fe80::1", true},
		{"::ffff:10.0.0.1", true},
		{"::ffff:8.8.8.8", false},
		{"203.0.113.50", false},
		{"2001:4860:4860::8888", false},
		{"invalid", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := isPrivateIP(tt.ip); got != tt.expected {
				t.Errorf("isPrivateIP(%q) = %v, want %v", tt.ip, got, tt.expected)
			}
		})
	}
}

func TestConcurrentAllow(t *testing.T) {
	limiter, _ := newTestLimiter(t, 50, 1000)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if limiter.Allow("7", "203.0.113.1").Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Fatalf("expected exactly 50 allowed writes, got %d", allowed)
	}
}
