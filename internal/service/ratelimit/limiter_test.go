package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"CryptoPredict/pkg/cache"
	xhttp "CryptoPredict/pkg/http"
	"CryptoPredict/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newMemory(t *testing.T, clk *clock) *cache.MemoryCounter {
	t.Helper()
	mc := cache.NewMemoryCounter(cache.WithClock(clk.Now))
	t.Cleanup(func() { _ = mc.Close() })
	return mc
}

func TestLimiterWindow(t *testing.T) {
	clk := &clock{now: time.Unix(1700000000, 0)}
	l, err := New(newMemory(t, clk), "predict", 2, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, retry, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retry)

	ok, _, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok, "keys are independent")

	clk.Advance(time.Minute)
	ok, _, _ = l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok, "a new window resets the budget")
}

func TestNewValidates(t *testing.T) {
	clk := &clock{now: time.Now()}
	_, err := New(nil, "p", 1, time.Second)
	assert.Error(t, err)
	_, err = New(newMemory(t, clk), "p", 0, time.Second)
	assert.Error(t, err)
	_, err = New(newMemory(t, clk), "p", 1, 0)
	assert.Error(t, err)
}

type brokenCounter struct{}

func (brokenCounter) Hit(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("connection refused")
}

func (brokenCounter) Close() error { return nil }

type predictRoute struct {
	limit echo.MiddlewareFunc
}

func (h predictRoute) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/predict", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, h.limit)
}

func serve(l *Limiter, opts ...xhttp.ServerOption) *echo.Echo {
	opts = append([]xhttp.ServerOption{xhttp.WithMetrics(false, ""), xhttp.WithCORS(false)}, opts...)
	return xhttp.NewServer(predictRoute{limit: l.Middleware(logger.Nop())}, opts...).Echo()
}

func post(e *echo.Echo, remote string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/predict", nil)
	req.RemoteAddr = remote
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitMiddleware(t *testing.T) {
	clk := &clock{now: time.Unix(1700000000, 0)}
	l, err := New(newMemory(t, clk), "predict", 1, 30*time.Second)
	require.NoError(t, err)
	e := serve(l)

	assert.Equal(t, http.StatusOK, post(e, "192.0.2.7:4000", nil).Code)

	rec := post(e, "192.0.2.7:4001", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	var body struct {
		Status int `json:"status"`
		Data   []struct {
			Code   string         `json:"code"`
			Params map[string]any `json:"params"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusTooManyRequests, body.Status)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_RATE_LIMITED", body.Data[0].Code)
	assert.EqualValues(t, 30, body.Data[0].Params["retryAfterSeconds"])
}

func TestRateLimitIgnoresForwardingHeadersFromClients(t *testing.T) {
	clk := &clock{now: time.Unix(1700000000, 0)}
	l, err := New(newMemory(t, clk), "predict", 1, 30*time.Second)
	require.NoError(t, err)
	e := serve(l)

	allowed := 0
	for i := 0; i < 20; i++ {
		rec := post(e, "203.0.113.9:5000", map[string]string{
			echo.HeaderXForwardedFor: fmt.Sprintf("198.51.100.%d", i+1),
			echo.HeaderXRealIP:       fmt.Sprintf("198.51.100.%d", i+100),
		})
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestRateLimitBehindTrustedProxy(t *testing.T) {
	clk := &clock{now: time.Unix(1700000000, 0)}
	l, err := New(newMemory(t, clk), "predict", 1, 30*time.Second)
	require.NoError(t, err)
	_, proxies, err := net.ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)
	e := serve(l, xhttp.WithTrustedProxies(proxies))

	via := func(client string) int {
		return post(e, "10.1.2.3:443", map[string]string{echo.HeaderXForwardedFor: client}).Code
	}
	assert.Equal(t, http.StatusOK, via("198.51.100.1"))
	assert.Equal(t, http.StatusOK, via("198.51.100.2"), "clients behind the proxy are limited separately")
	assert.Equal(t, http.StatusTooManyRequests, via("198.51.100.1"))

	// a client prepending its own entry is still keyed by the address the proxy saw
	assert.Equal(t, http.StatusTooManyRequests, via("192.0.2.50, 198.51.100.2"))
}

func TestRateLimitFailsOpen(t *testing.T) {
	l, err := New(brokenCounter{}, "predict", 1, time.Second)
	require.NoError(t, err)
	e := serve(l)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, post(e, "192.0.2.7:4000", nil).Code)
	}
}
