package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-ticketing/internal/config"
)

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// teeWriter forwards the response and keeps a copy of up to limit bytes.
type teeWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
			w.overflow = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// NewRedisCache caches 200 responses of the public catalogue in Redis.
// Headers and body are stored together so a hit replays the miss that
// filled it.  "Cache-Control: no-cache" on the request skips the lookup
// but still refreshes the entry.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !cfg.Methods[req.Method] {
				return next(c)
			}
			key := cacheKey(cfg, c)

			if !strings.Contains(strings.ToLower(req.Header.Get(echo.HeaderCacheControl)), "no-cache") {
				if hit, ok := lookup(req.Context(), rdb, key); ok {
					h := c.Response().Header()
					for k, vals := range hit.Header {
						if k == echo.HeaderContentLength {
							continue
						}
						h[k] = vals
					}
					h.Set("X-Cache", "HIT")
					return c.Blob(hit.Status, h.Get(echo.HeaderContentType), hit.Body)
				}
			}

			w := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBody}
			c.Response().Writer = w
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if w.status != http.StatusOK || w.overflow {
				return nil
			}
			entry, err := json.Marshal(cachedResponse{Status: w.status, Header: c.Response().Header().Clone(), Body: w.buf.Bytes()})
			if err == nil {
				// the request context may already be cancelled once the client has its answer
				_ = rdb.Set(context.WithoutCancel(req.Context()), key, entry, cfg.TTL).Err()
			}
			return nil
		}
	}
}

func lookup(ctx context.Context, rdb *redis.Client, key string) (cachedResponse, bool) {
	raw, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return cachedResponse{}, false
	}
	var out cachedResponse
	if json.Unmarshal(raw, &out) != nil || out.Status == 0 {
		return cachedResponse{}, false
	}
	return out, true
}

// cacheKey hashes route and query.  Responses built for a signed-in
// caller carry the user id so they never reach another caller.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	parts := []string{c.Request().Method, c.Path(), c.Request().URL.RawQuery}
	if uid := currentUserID(c); uid != "anon" {
		parts = append(parts, "u"+uid)
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "\x00")))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}
