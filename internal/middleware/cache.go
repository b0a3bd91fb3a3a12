package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/reshamsu/dlink-colombo/internal/config"
	"github.com/reshamsu/dlink-colombo/internal/logging"
)

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// teeWriter copies up to limit bytes of the response while it is written
// to the client.  A body over the limit is marked truncated and not cached.
type teeWriter struct {
	http.ResponseWriter
	status    int
	body      bytes.Buffer
	limit     int
	truncated bool
}

func (w *teeWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
	if !w.truncated {
		if w.limit > 0 && w.body.Len()+len(b) > w.limit {
			w.truncated = true
			w.body.Reset()
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

func (w *teeWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// cacheKey hashes the request parts picked by cfg.KeyStrategy under
// cfg.Prefix, e.g. "cache:3f2a...".
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var id string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		id = c.Path()
	case "method_route":
		id = r.Method + " " + c.Path()
	case "method_route_query":
		id = r.Method + " " + c.Path() + "?" + r.URL.RawQuery
	default: // route_query; :id is part of the path so detail pages get their own entry
		id = r.URL.Path + "?" + r.URL.RawQuery
	}
	sum := sha1.Sum([]byte(id))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// shareable reports whether a response to c may be served to other
// clients.  Dashboard calls and slideshow streams never are.
func shareable(cfg config.CacheConfig, c echo.Context) bool {
	r := c.Request()
	return cfg.Methods[strings.ToUpper(r.Method)] &&
		r.Header.Get(echo.HeaderAuthorization) == "" &&
		!strings.Contains(r.Header.Get(echo.HeaderAccept), "text/event-stream")
}

// NewRedisCache serves the listing grid, detail pages and hero banners from
// Redis.  Only 200 responses are stored; entries expire after cfg.TTL or
// when CachePurger.Purge runs after a listing write.  The X-Cache header
// tells HIT from MISS.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !shareable(cfg, c) {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(raw, &hit) == nil && hit.Status != 0 {
					h := c.Response().Header()
					for k, vs := range hit.Header {
						if k == echo.HeaderContentLength {
							continue
						}
						h[k] = vs
					}
					h.Set("X-Cache", "HIT")
					return c.Blob(hit.Status, h.Get(echo.HeaderContentType), hit.Body)
				}
			}

			tw := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = tw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if tw.status != http.StatusOK || tw.truncated {
				return nil
			}

			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			hdr.Del(TraceHeader)
			payload, err := json.Marshal(cachedResponse{Status: tw.status, Header: hdr, Body: tw.body.Bytes()})
			if err != nil {
				return nil
			}
			if err := rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
				logging.FromContext(ctx).Warn("cache store failed", "key", key, "error", err)
			}
			return nil
		}
	}
}

// CachePurger drops cached responses after writes.
type CachePurger struct {
	rdb    *redis.Client
	prefix string
}

func NewCachePurger(cfg config.CacheConfig, rdb *redis.Client) *CachePurger {
	return &CachePurger{rdb: rdb, prefix: cfg.Prefix}
}

// Purge deletes every key under the cache prefix.  It is a no-op without
// Redis and returns the number of removed entries.
func (p *CachePurger) Purge(ctx context.Context) (int, error) {
	if p == nil || p.rdb == nil {
		return 0, nil
	}
	removed := 0
	iter := p.rdb.Scan(ctx, 0, p.prefix+":*", 200).Iterator()
	batch := make([]string, 0, 200)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := p.rdb.Del(ctx, batch...).Result()
		removed += int(n)
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, flush()
}
