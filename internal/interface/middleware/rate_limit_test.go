package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/scopeguard/pkg/helpers"
)

func newLimitedEngine(t *testing.T, rdb *redis.Client, max int, allow AllowFunc) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.Use(RealIP())
	limiter := RateLimit(rdb, helpers.NewDiscardLogger(), max, time.Minute, KeyByIPAndPath(), allow)
	r.POST("/token", limiter, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/register", limiter, func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func post(r http.Handler, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("X-Forwarded-For", ip)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BlocksAfterMax(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := newLimitedEngine(t, rdb, 2, nil)

	assert.Equal(t, http.StatusOK, post(r, "/token", "203.0.113.7").Code)
	w := post(r, "/token", "203.0.113.7")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = post(r, "/token", "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	// Separate budgets per route and per client.
	assert.Equal(t, http.StatusCreated, post(r, "/register", "203.0.113.7").Code)
	assert.Equal(t, http.StatusOK, post(r, "/token", "198.51.100.1").Code)

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, post(r, "/token", "203.0.113.7").Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	r := newLimitedEngine(t, rdb, 1, nil)
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, post(r, "/token", "203.0.113.7").Code)
	}
}

func TestRateLimit_AllowPrivateIP(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := newLimitedEngine(t, rdb, 1, AllowPrivateIP())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, post(r, "/token", "10.0.0.5").Code)
	}
	assert.Equal(t, http.StatusOK, post(r, "/token", "203.0.113.7").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(r, "/token", "203.0.113.7").Code)
}

func TestRateLimit_DisabledWithoutRedis(t *testing.T) {
	r := newLimitedEngine(t, nil, 1, nil)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, post(r, "/token", "203.0.113.7").Code)
	}
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "cloudflare wins", headers: map[string]string{"CF-Connecting-IP": "198.51.100.9", "X-Forwarded-For": "203.0.113.1"}, want: "198.51.100.9"},
		{name: "left-most forwarded", headers: map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}, want: "203.0.113.1"},
		{name: "invalid header falls back", headers: map[string]string{"X-Forwarded-For": "not-an-ip"}, want: "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			r := gin.New()
			r.Use(RealIP())
			r.GET("/", func(c *gin.Context) { got = c.GetString(CtxRealIPKey) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.0.2.1:1234"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			r.ServeHTTP(httptest.NewRecorder(), req)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(HeaderRequestID))

	const inbound = "3f2c7b8e-1d4a-4c55-9b1e-2a6f0d9c8e71"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, inbound)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, inbound, w.Body.String())
}
