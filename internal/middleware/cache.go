package middleware

import (
	"crypto/sha1"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/colorfest/ticket-booking/internal/config"
)

// bodyCapture mirrors the response into a buffer while forwarding it to
// the client, so a successful JSON body can be stored after the handler
// returns.
type bodyCapture struct {
	http.ResponseWriter
	status int
	body   strings.Builder
}

func (w *bodyCapture) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// NewBrowseCache caches successful GET responses in Redis for the
// configured TTL.  Only 200 responses are stored, keyed by route and
// query string.  Availability listings tolerate TTL-bounded staleness
// because every reservation re-checks stock server side; the cache only
// smooths browse traffic.  With a nil Redis client the middleware is a
// pass-through.
func NewBrowseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			key := browseCacheKey(cfg.Prefix, c)
			ctx := c.Request().Context()
			if cached, err := rdb.Get(ctx, key).Result(); err == nil {
				return c.JSONBlob(http.StatusOK, []byte(cached))
			}

			capture := &bodyCapture{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = capture
			if err := next(c); err != nil {
				return err
			}
			if capture.status == http.StatusOK && capture.body.Len() > 0 {
				// Best effort: a failed SET just means the next request
				// recomputes.
				_ = rdb.Set(ctx, key, capture.body.String(), ttl).Err()
			}
			return nil
		}
	}
}

func browseCacheKey(prefix string, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}
