// Package ratelimit enforces per-client request budgets on individual endpoints.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"ocgamma/internal/cache"
	apperrors "ocgamma/internal/errors"
)

const (
	keyPrefix    = "ratelimit:"
	redisTimeout = 200 * time.Millisecond
)

// Store admits at most limit requests per identifier in any rolling window.
// Requests are logged in a Redis sorted set; when Redis cannot answer the
// store falls back to an in-process log with the same rules, so a cache
// outage never disables the limit. Denied requests are not counted.
type Store struct {
	cache    *cache.Client
	name     string
	limit    int
	window   time.Duration
	fallback *windowLog
	log      *zap.Logger
	now      func() time.Time
}

var _ middleware.RateLimiterStore = (*Store)(nil)

// NewStore creates a limiter allowing limit requests per window for each identifier.
// name separates the buckets of different endpoints.
func NewStore(c *cache.Client, name string, limit int, window time.Duration, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		cache:    c,
		name:     name,
		limit:    limit,
		window:   window,
		fallback: newWindowLog(limit, window),
		log:      log,
		now:      time.Now,
	}
}

// Allow implements middleware.RateLimiterStore.
func (s *Store) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	now := s.now()
	key := keyPrefix + s.name + ":" + identifier
	allowed, err := s.cache.SlidingWindow(ctx, key, uuid.NewString(), now, s.window, int64(s.limit))
	if err != nil {
		s.log.Debug("rate limit log unavailable, using local window",
			zap.String("endpoint", s.name), zap.Error(err))
		return s.fallback.allow(identifier, now), nil
	}
	return allowed, nil
}

// windowLog keeps admitted request times per identifier in memory.
type windowLog struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	hits      map[string][]time.Time
	lastSweep time.Time
}

func newWindowLog(limit int, window time.Duration) *windowLog {
	return &windowLog{limit: limit, window: window, hits: make(map[string][]time.Time)}
}

func (l *windowLog) allow(identifier string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	// drop idle identifiers once per window
	if now.Sub(l.lastSweep) >= l.window {
		for id, ts := range l.hits {
			if live := l.prune(ts, now); len(live) > 0 {
				l.hits[id] = live
			} else {
				delete(l.hits, id)
			}
		}
		l.lastSweep = now
	}

	live := l.prune(l.hits[identifier], now)
	if len(live) >= l.limit {
		l.hits[identifier] = live
		return false
	}
	l.hits[identifier] = append(live, now)
	return true
}

// prune drops times that are no longer inside the window ending at now.
func (l *windowLog) prune(ts []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

// Middleware applies store to a route, keyed by the client IP.
// echo's RealIP honours the first X-Forwarded-For hop before the socket address.
func Middleware(store *Store) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			store.log.Warn("rate limit exceeded",
				zap.String("ip", identifier), zap.String("endpoint", store.name))
			return apperrors.ErrRateLimited
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperrors.ErrRateLimited
		},
	})
}
