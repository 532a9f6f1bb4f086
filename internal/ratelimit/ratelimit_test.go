package ratelimit

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ocgamma/internal/errors"
)

func TestStore_FallbackEnforcesLimit(t *testing.T) {
	store := NewStore(nil, "theme", 10, time.Minute, nil)

	for i := 0; i < 10; i++ {
		ok, err := store.Allow("10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i+1)
	}

	ok, err := store.Allow("10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok, "11th request must be throttled")

	ok, _ = store.Allow("10.0.0.2")
	assert.True(t, ok, "other clients keep their own budget")
}

func TestStore_FallbackIsASlidingWindow(t *testing.T) {
	store := NewStore(nil, "theme", 10, time.Minute, nil)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	store.now = func() time.Time { return now }

	// one request per second for ten seconds fills the window
	for i := 0; i < 10; i++ {
		now = start.Add(time.Duration(i) * time.Second)
		ok, err := store.Allow("10.0.0.1")
		require.NoError(t, err)
		require.True(t, ok, "request %d should pass", i+1)
	}

	for _, at := range []time.Duration{
		6100 * time.Millisecond,
		30 * time.Second,
		59 * time.Second,
		time.Minute,
	} {
		now = start.Add(at)
		ok, _ := store.Allow("10.0.0.1")
		assert.False(t, ok, "still throttled at +%s", at)
	}

	// the first request leaves the window; denied calls did not use it up
	now = start.Add(time.Minute + 500*time.Millisecond)
	ok, _ := store.Allow("10.0.0.1")
	assert.True(t, ok, "one slot frees up after the oldest request expires")
	ok, _ = store.Allow("10.0.0.1")
	assert.False(t, ok, "only one slot was freed")

	// a fixed window would reset here and admit a fresh burst
	now = start.Add(2*time.Minute - time.Second)
	allowed := 0
	for i := 0; i < 20; i++ {
		if ok, _ := store.Allow("10.0.0.1"); ok {
			allowed++
		}
	}
	assert.Equal(t, 9, allowed, "requests from the last minute still count")
}

func TestStore_FallbackForgetsIdleClients(t *testing.T) {
	store := NewStore(nil, "login", 1, time.Minute, nil)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	store.now = func() time.Time { return now }

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		ok, _ := store.Allow(ip)
		require.True(t, ok)
	}
	assert.Len(t, store.fallback.hits, 3)

	now = start.Add(2 * time.Minute)
	ok, _ := store.Allow("10.0.0.4")
	require.True(t, ok)
	assert.Len(t, store.fallback.hits, 1)
}

func TestMiddleware_DeniesWithRateLimitedError(t *testing.T) {
	e := echo.New()
	var denied error
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		denied = err
		_ = c.NoContent(http.StatusTooManyRequests)
	}
	e.POST("/login", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, Middleware(NewStore(nil, "login", 2, time.Minute, nil)))

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.Header.Set(echo.HeaderXForwardedFor, "203.0.113.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
	assert.True(t, errors.Is(denied, apperrors.ErrRateLimited))
}
