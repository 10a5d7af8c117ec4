package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func limited(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=boot", nil)
	req.RemoteAddr = ip + ":40000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimit_BurstThen429(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RateLimit(RateLimitConfig{RPS: 0.001, Burst: 2}, l)(http.HandlerFunc(okHandler))

	assert.Equal(t, http.StatusOK, limited(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, limited(h, "10.0.0.1").Code)

	rr := limited(h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), `"code":"RATE_LIMITED"`)

	// Other clients keep their own bucket.
	assert.Equal(t, http.StatusOK, limited(h, "10.0.0.2").Code)
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RateLimit(RateLimitConfig{}, l)(http.HandlerFunc(okHandler))
	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusOK, limited(h, "10.0.0.1").Code)
	}
}

func TestRateLimit_EvictsIdleClients(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	store := &clients{
		byIP:  make(map[string]*client),
		limit: rate.Limit(10),
		burst: 10,
		ttl:   time.Minute,
		now:   clock,
	}
	h := rateLimit(store, slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(okHandler))

	limited(h, "10.0.0.1")
	limited(h, "10.0.0.2")
	assert.Equal(t, 2, store.size())

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	limited(h, "10.0.0.3")
	assert.Equal(t, 1, store.size())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:1", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.1:1", "198.51.100.4"},
		{"garbage header", map[string]string{"X-Forwarded-For": "nope"}, "192.0.2.9:5555", "192.0.2.9"},
		{"remote only", nil, "192.0.2.10:80", "192.0.2.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
