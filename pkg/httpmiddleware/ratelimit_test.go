package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// fakeClock is a settable clock starting on a window boundary.
type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func hit(h http.Handler, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/restaurants", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// decodeError reads the {"code","message"} error body.
func decodeError(t *testing.T, body []byte) (code, message string) {
	t.Helper()
	err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			code, err = d.Str()
		case "message":
			message, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	require.NoError(t, err)
	return code, message
}

func TestRateLimit_UnderLimit(t *testing.T) {
	clock := newFakeClock()
	h := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute, Now: clock.Now})(okHandler())

	for i := range 5 {
		w := hit(h, "192.168.1.1:12345", nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(4-i), w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	clock := newFakeClock()
	h := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute, Now: clock.Now})(okHandler())

	for range 2 {
		require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:9999", nil).Code)
	}
	w := hit(h, "10.0.0.1:9999", nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	code, msg := decodeError(t, w.Body.Bytes())
	assert.Equal(t, "rate_limited", code)
	assert.Equal(t, "rate limit exceeded", msg)
}

func TestRateLimit_SlidingWindow(t *testing.T) {
	clock := newFakeClock()
	h := RateLimit(RateLimitConfig{Max: 4, Window: time.Minute, Now: clock.Now})(okHandler())

	for range 4 {
		require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", nil).Code)
	}

	// A quarter into the next window, 3 of the 4 previous requests still count.
	clock.Advance(75 * time.Second)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:1", nil).Code)

	// Two windows later the history is gone.
	clock.Advance(2 * time.Minute)
	w := hit(h, "10.0.0.1:1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_DifferentIPs(t *testing.T) {
	clock := newFakeClock()
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute, Now: clock.Now})(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1234", nil).Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1234", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:5678", nil).Code)
}

func TestRateLimit_APIKeyBuckets(t *testing.T) {
	clock := newFakeClock()
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute, Now: clock.Now})(okHandler())

	// Same IP, different keys: separate buckets.
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", map[string]string{"api_key": "alice"}).Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", map[string]string{"api_key": "bob"}).Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", nil).Code)

	// Same key from another IP shares the bucket.
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.9:1", map[string]string{"api_key": "alice"}).Code)
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	clock := newFakeClock()
	h := RateLimit(RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		Now:     clock.Now,
		KeyFunc: func(*http.Request) string { return "global" },
	})(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.2:1", nil).Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(RateLimitConfig{})(okHandler())
	for range 10 {
		w := hit(h, "10.0.0.1:1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestClientIP(t *testing.T) {
	for _, tt := range []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"remote addr", "192.168.1.1:4444", nil, "192.168.1.1"},
		{"forwarded first hop", "192.168.1.1:4444", map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}, "203.0.113.50"},
		{"real ip", "192.168.1.1:4444", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"no port", "unix", nil, "unix"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestLimiterSweep(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(RateLimitConfig{Max: 3, Window: time.Minute, Now: clock.Now})
	l.take("a", clock.Now())
	clock.Advance(90 * time.Second)
	l.take("b", clock.Now())

	l.sweep(clock.Now().Add(time.Minute))
	assert.Equal(t, 1, l.size())
}
