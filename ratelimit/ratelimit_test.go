package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMemoryLimiter_Allow(t *testing.T) {
	ml := NewMemoryLimiter(3, time.Minute)
	defer ml.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := ml.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, err := ml.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Error("fourth request should be limited")
	}

	// Other keys are unaffected.
	allowed, _ = ml.Allow(ctx, "5.6.7.8")
	if !allowed {
		t.Error("different key should be allowed")
	}
}

func TestMemoryLimiter_WindowRollover(t *testing.T) {
	ml := NewMemoryLimiter(1, 20*time.Millisecond)
	defer ml.Close()
	ctx := context.Background()

	if allowed, _ := ml.Allow(ctx, "k"); !allowed {
		t.Fatal("first request should be allowed")
	}
	if allowed, _ := ml.Allow(ctx, "k"); allowed {
		t.Fatal("second request should be limited")
	}

	time.Sleep(30 * time.Millisecond)

	if allowed, _ := ml.Allow(ctx, "k"); !allowed {
		t.Error("request after window rollover should be allowed")
	}
}

func TestMemoryLimiter_Reset(t *testing.T) {
	ml := NewMemoryLimiter(1, time.Minute)
	defer ml.Close()
	ctx := context.Background()

	ml.Allow(ctx, "k")
	if allowed, _ := ml.Allow(ctx, "k"); allowed {
		t.Fatal("should be limited before reset")
	}

	if err := ml.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if allowed, _ := ml.Allow(ctx, "k"); !allowed {
		t.Error("should be allowed after reset")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "10.0.0.1:54321",
			want:       "10.0.0.1",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:54321",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for list takes first",
			remoteAddr: "10.0.0.1:54321",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip",
			remoteAddr: "10.0.0.1:54321",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	ml := NewMemoryLimiter(2, time.Minute)
	defer ml.Close()

	handler := Middleware(ml, &Config{Rate: 2, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	do := func() int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(); code != http.StatusOK {
		t.Errorf("first request status = %d", code)
	}
	if code := do(); code != http.StatusOK {
		t.Errorf("second request status = %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", code)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return false, context.DeadlineExceeded
}
func (brokenLimiter) Reset(ctx context.Context, key string) error { return nil }
func (brokenLimiter) Close() error                                { return nil }

func TestMiddleware_FailsOpen(t *testing.T) {
	handler := Middleware(brokenLimiter{}, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want limiter failure to fail open", rec.Code)
	}
}
