package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_UnderLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(okHandler())

	for i := range 5 {
		w := hit(h, "192.168.1.1:12345", nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	assert.Equal(t, "1", hit(h, "10.0.0.1:9999", nil).Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "0", hit(h, "10.0.0.1:9999", nil).Header().Get("X-RateLimit-Remaining"))

	w := hit(h, "10.0.0.1:9999", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Too many requests. Please try again later.", body["error"])
}

func TestRateLimit_IndependentClients(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1234", nil).Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1234", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:5678", nil).Code)
}

func TestRateLimit_ForwardedHeaders(t *testing.T) {
	xff := map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}

	t.Run("untrusted proxy uses remote address", func(t *testing.T) {
		h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())
		assert.Equal(t, http.StatusOK, hit(h, "192.168.1.1:4444", xff).Code)
		assert.Equal(t, http.StatusOK, hit(h, "192.168.1.2:5555", xff).Code)
	})

	t.Run("trusted proxy uses first hop", func(t *testing.T) {
		h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute, TrustProxy: true})(okHandler())
		assert.Equal(t, http.StatusOK, hit(h, "192.168.1.1:4444", xff).Code)
		assert.Equal(t, http.StatusTooManyRequests, hit(h, "192.168.1.2:5555", xff).Code)
	})
}

func TestRateLimit_CustomKeyAndSkip(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: func(r *http.Request) string { return r.Header.Get("X-Session") },
		Skip:    func(r *http.Request) bool { return r.Header.Get("X-Probe") == "1" },
	})(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", map[string]string{"X-Session": "a"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:1", map[string]string{"X-Session": "a"}).Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", map[string]string{"X-Session": "b"}).Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", map[string]string{"X-Session": "a", "X-Probe": "1"}).Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 0, Window: time.Minute})(okHandler())

	for range 10 {
		w := hit(h, "10.0.0.1:1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	start := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

	_, _, ok := l.take("k", start)
	require.True(t, ok)
	_, _, ok = l.take("k", start.Add(time.Second))
	require.True(t, ok)
	_, _, ok = l.take("k", start.Add(2*time.Second))
	require.False(t, ok)

	// Early in the next window the previous requests still count almost fully.
	_, _, ok = l.take("k", start.Add(61*time.Second))
	require.True(t, ok)
	_, _, ok = l.take("k", start.Add(62*time.Second))
	require.False(t, ok)

	// Two windows later everything is forgotten.
	_, _, ok = l.take("k", start.Add(5*time.Minute))
	require.True(t, ok)

	l.evict(start.Add(10 * time.Minute))
	assert.Empty(t, l.counters)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	req.Header.Set("X-Real-IP", "198.51.100.7")

	assert.Equal(t, "10.1.2.3", ClientIP(req, false))
	assert.Equal(t, "198.51.100.7", ClientIP(req, true))
}
