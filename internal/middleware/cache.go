package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venuex-ticketing/internal/config"
)

// captureWriter tees the response body, up to limit bytes, while
// forwarding it to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
	over   bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.over {
		if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
			cw.over = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "method_route":
		parts = []string{"method", r.Method, "route", c.Path()}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", c.Path(), "params", strings.Join(c.ParamValues(), ","), "q", r.URL.RawQuery}
	default:
		parts = []string{"route", c.Path(), "params", strings.Join(c.ParamValues(), ","), "q", r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodeEntry packs [status u32][header length u32][header JSON][body].
func encodeEntry(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	copy(out[8:], hdr)
	copy(out[8+len(hdr):], body)
	return out, nil
}

func decodeEntry(bs []byte) (int, http.Header, []byte, bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	hdr := make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, bs[8+hlen:], true
}

// NewRedisCache serves repeated public reads from Redis.  Only 200
// responses are stored; X-Cache reports HIT or MISS.  With caching
// disabled or no client the middleware is a no-op.
func NewRedisCache(cfg config.CacheConfig, rdb redis.Cmdable) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodeEntry(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(status, hdr.Get(echo.HeaderContentType), body)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.over {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			entry, err := encodeEntry(cw.status, hdr, cw.buf.Bytes())
			if err == nil {
				err = rdb.Set(context.WithoutCancel(ctx), key, entry, cfg.TTL).Err()
			}
			if err != nil {
				logrus.WithError(err).WithField("key", key).Debug("cache store failed")
			}
			return nil
		}
	}
}

// CacheInvalidator drops cached responses after writes that change the
// public catalogue.
type CacheInvalidator struct {
	rdb    redis.Cmdable
	prefix string
}

// NewCacheInvalidator returns nil when rdb is nil; a nil invalidator
// does nothing.
func NewCacheInvalidator(cfg config.CacheConfig, rdb redis.Cmdable) *CacheInvalidator {
	if rdb == nil || !cfg.Enabled {
		return nil
	}
	return &CacheInvalidator{rdb: rdb, prefix: cfg.Prefix}
}

// Purge deletes every key under the cache prefix.
func (ci *CacheInvalidator) Purge(ctx context.Context) error {
	if ci == nil {
		return nil
	}
	var cursor uint64
	for {
		keys, next, err := ci.rdb.Scan(ctx, cursor, ci.prefix+":*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := ci.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete cache keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// InventoryChanged drops the cached catalogue after a booking moved an
// event's available tickets.  Listings embed availability too, so the
// whole prefix goes rather than the event's own key.
func (ci *CacheInvalidator) InventoryChanged(ctx context.Context, eventID uint64) {
	if err := ci.Purge(ctx); err != nil {
		logrus.WithError(err).WithField("event_id", eventID).Warn("event cache purge failed")
	}
}
