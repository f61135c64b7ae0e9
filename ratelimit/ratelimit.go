// Package ratelimit provides request rate limiting for the
// credential-handling endpoints.
package ratelimit

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ErrRateLimited is returned when a key has exhausted its window.
var ErrRateLimited = errors.New("rate limit exceeded")

// Limiter defines the interface for rate limiters.
type Limiter interface {
	// Allow checks if a request is allowed for the given key.
	// Returns true if allowed, false if rate limited.
	Allow(ctx context.Context, key string) (bool, error)

	// Reset resets the rate limit for the given key.
	Reset(ctx context.Context, key string) error

	// Close releases any resources held by the limiter.
	Close() error
}

// Config holds rate limiter configuration.
type Config struct {
	// Rate is the number of requests allowed per window.
	Rate int

	// Window is the time window for the rate limit.
	Window time.Duration

	// KeyFunc extracts the rate limit key from an HTTP request.
	// Defaults to client IP address.
	KeyFunc func(r *http.Request) string

	// OnLimited is called when a request is rate limited.
	// Defaults to returning 429 Too Many Requests.
	OnLimited func(w http.ResponseWriter, r *http.Request)
}

// DefaultConfig returns a default rate limiter configuration tuned for
// login and signup forms: a handful of attempts per minute per client.
func DefaultConfig() *Config {
	return &Config{
		Rate:      10,
		Window:    time.Minute,
		KeyFunc:   ClientIP,
		OnLimited: defaultOnLimited,
	}
}

func defaultOnLimited(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
}

// ClientIP extracts the client IP from an HTTP request. Checks
// X-Forwarded-For and X-Real-IP headers first.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	addr := r.RemoteAddr
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
		if addr[i] == ']' {
			// IPv6, port already stripped
			break
		}
	}
	return addr
}

// entry tracks a fixed window for one key.
type entry struct {
	count    int
	windowAt time.Time
}

// MemoryLimiter is an in-memory fixed-window rate limiter. Suitable
// for single-process deployments; use RedisLimiter when running more
// than one instance.
type MemoryLimiter struct {
	mu      sync.RWMutex
	entries map[string]*entry
	rate    int
	window  time.Duration
	done    chan struct{}
}

// NewMemoryLimiter creates a new in-memory rate limiter.
func NewMemoryLimiter(rate int, window time.Duration) *MemoryLimiter {
	ml := &MemoryLimiter{
		entries: make(map[string]*entry),
		rate:    rate,
		window:  window,
		done:    make(chan struct{}),
	}

	go ml.sweep()

	return ml
}

// Allow checks if a request is allowed for the given key.
func (m *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	e, exists := m.entries[key]

	if !exists || now.After(e.windowAt) {
		m.entries[key] = &entry{
			count:    1,
			windowAt: now.Add(m.window),
		}
		return m.rate >= 1, nil
	}

	if e.count+1 > m.rate {
		return false, nil
	}

	e.count++
	return true, nil
}

// Reset resets the rate limit for the given key.
func (m *MemoryLimiter) Reset(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Close stops the sweep goroutine.
func (m *MemoryLimiter) Close() error {
	close(m.done)
	return nil
}

func (m *MemoryLimiter) sweep() {
	ticker := time.NewTicker(m.window)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.removeExpired()
		}
	}
}

func (m *MemoryLimiter) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, e := range m.entries {
		if now.After(e.windowAt) {
			delete(m.entries, key)
		}
	}
}

// ResetTime returns when the window for a key rolls over.
func (m *MemoryLimiter) ResetTime(key string) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.entries[key]
	if !exists || time.Now().After(e.windowAt) {
		return time.Now().Add(m.window)
	}
	return e.windowAt
}

// Middleware creates an HTTP middleware that applies rate limiting.
// A limiter backend failure lets the request through; losing the
// limiter should not take the login form down with it.
func Middleware(limiter Limiter, cfg *Config) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIP
	}

	onLimited := cfg.OnLimited
	if onLimited == nil {
		onLimited = defaultOnLimited
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Printf("[ratelimit] check failed for key %s: %v", key, err)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				if ml, ok := limiter.(*MemoryLimiter); ok {
					resetAt := ml.ResetTime(key)
					retryAfter := int(time.Until(resetAt).Seconds())
					if retryAfter < 0 {
						retryAfter = 0
					}
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				}
				onLimited(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
