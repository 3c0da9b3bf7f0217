package security

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter is the abuse guard contract: Allow reports whether one more attempt
// is permitted for the bucket key within the configured window. Counters may
// be approximate under distributed deployment but must never under-count.
type Limiter interface {
	Allow(key string) bool
}

// RateLimiter is an in-process fixed-window limiter: rate attempts per window
// per key. Suitable for single-node deployments; see RedisRateLimiter for the
// distributed variant.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.RWMutex
	rate     int           // attempts per window
	window   time.Duration // time window
}

type visitor struct {
	count       int
	windowStart time.Time
	mu          sync.Mutex
}

// NewRateLimiter creates a new rate limiter allowing rate attempts per window
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	// Start cleanup goroutine
	go rl.cleanupVisitors()
	return rl
}

// Allow checks if one more attempt for the key should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{windowStart: time.Now()}
		rl.visitors[key] = v
	}
	rl.mu.Unlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	now := time.Now()
	if now.Sub(v.windowStart) >= rl.window {
		v.count = 0
		v.windowStart = now
	}

	if v.count < rl.rate {
		v.count++
		return true
	}

	return false
}

// cleanupVisitors removes stale entries to prevent memory leaks
func (rl *RateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, v := range rl.visitors {
			v.mu.Lock()
			if now.Sub(v.windowStart) > rl.window*2 {
				delete(rl.visitors, key)
			}
			v.mu.Unlock()
		}
		rl.mu.Unlock()
	}
}

// GetClientIP extracts the client IP from the request
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (when behind proxy)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		// First address is the originating client
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return forwarded
	}

	// Check X-Real-IP header
	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	// Fall back to RemoteAddr
	return r.RemoteAddr
}
