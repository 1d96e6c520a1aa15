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

	"github.com/iliyamo/script-review-portal/internal/config"
	"github.com/iliyamo/script-review-portal/internal/metrics"
)

// captureWriter tees the response body (up to limit bytes) while writing it.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

func (cw *captureWriter) truncated() bool { return cw.limit > 0 && cw.size > cw.limit }

// cacheKey hashes route and query so the key length stays bounded.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	return fmt.Sprintf("%s:%x", cfg.Prefix, sha1.Sum([]byte(c.Path()+"?"+c.Request().URL.RawQuery)))
}

func cacheable(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// encodePayload packs [status u32][header length u32][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	out = append(out, hdr...)
	return append(out, body...), nil
}

func decodePayload(bs []byte) (int, http.Header, []byte, bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	hdr := http.Header{}
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, bs[8+hlen:], true
}

// NewRedisCache serves cached 200 responses to GET and HEAD. It sits in
// front of the public tier catalogue, which changes only on deploy.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cacheable(c.Request().Method) {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, "Content-Length") {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					metrics.ResponseCache.WithLabelValues("hit").Inc()
					c.Response().WriteHeader(status)
					_, err := c.Response().Write(body)
					return err
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			metrics.ResponseCache.WithLabelValues("miss").Inc()
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated() {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
				_ = rdb.SetEx(context.WithoutCancel(ctx), key, payload, cfg.TTL).Err()
			}
			return nil
		}
	}
}
