package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	redispkg "github.com/drawing-gallery/core/internal/pkg/redis"
	"github.com/gin-gonic/gin"
)

const (
	APICachePrefix          = "gallery:api-cache:"
	defaultHTTPCacheTTL     = 30 * time.Second
	defaultHTTPCacheMaxBody = 1 << 20 // 1 MiB
	staleWhileRevalidate    = 60
	cacheStatusHeader       = "X-Gallery-Cache"
)

// HTTPCacheOptions tunes the public response cache.
type HTTPCacheOptions struct {
	TTL          time.Duration
	SkipPaths    []string
	MaxBodyBytes int
}

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	BodyBase64  string `json:"body_base64"`
	body        []byte
}

type cacheBodyWriter struct {
	gin.ResponseWriter
	body         []byte
	maxBodyBytes int
	overflow     bool
}

func (w *cacheBodyWriter) Write(data []byte) (int, error) {
	w.capture(data)
	return w.ResponseWriter.Write(data)
}

func (w *cacheBodyWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *cacheBodyWriter) capture(data []byte) {
	if w.overflow || len(data) == 0 {
		return
	}
	if len(w.body)+len(data) > w.maxBodyBytes {
		w.overflow = true
		w.body = nil
		return
	}
	w.body = append(w.body, data...)
}

// HTTPCache serves anonymous GET requests from Redis. Admin requests bypass
// the cache and are marked private. A nil client disables caching.
func HTTPCache(client *redispkg.Client, opts HTTPCacheOptions) gin.HandlerFunc {
	if opts.TTL <= 0 {
		opts.TTL = defaultHTTPCacheTTL
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultHTTPCacheMaxBody
	}
	ttlSeconds := int(opts.TTL / time.Second)

	return func(c *gin.Context) {
		if client == nil || c.Request.Method != http.MethodGet || matchPath(c.Request.URL.Path, opts.SkipPaths) {
			c.Next()
			return
		}

		if IsAuthenticated(c) {
			c.Header("Cache-Control", "private, no-store")
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := APICachePrefix + c.Request.URL.RequestURI()
		if cached, ok := readCachedResponse(ctx, client, key); ok {
			c.Header(cacheStatusHeader, "hit")
			setCacheControl(c, ttlSeconds)
			c.Data(cached.Status, cached.ContentType, cached.body)
			c.Abort()
			return
		}

		buf := &cacheBodyWriter{ResponseWriter: c.Writer, maxBodyBytes: opts.MaxBodyBytes}
		c.Writer = buf
		c.Header(cacheStatusHeader, "miss")
		setCacheControl(c, ttlSeconds)
		c.Next()

		if c.Writer.Status() != http.StatusOK || buf.overflow || len(buf.body) == 0 {
			return
		}
		raw, err := json.Marshal(cachedResponse{
			Status:      http.StatusOK,
			ContentType: c.Writer.Header().Get("Content-Type"),
			BodyBase64:  base64.StdEncoding.EncodeToString(buf.body),
		})
		if err != nil {
			return
		}
		_ = client.Set(ctx, key, raw, opts.TTL)
	}
}

// PurgeHTTPCache drops every cached response and returns the number of keys removed.
func PurgeHTTPCache(ctx context.Context, client *redispkg.Client) (int64, error) {
	if client == nil {
		return 0, nil
	}
	return client.DelPattern(ctx, APICachePrefix+"*")
}

// PurgeOnWrite clears the response cache after every successful non-GET request.
func PurgeOnWrite(client *redispkg.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if client == nil || c.Request.Method == http.MethodGet {
			return
		}
		if status := c.Writer.Status(); status >= 200 && status < 300 {
			_, _ = PurgeHTTPCache(c.Request.Context(), client)
		}
	}
}

func readCachedResponse(ctx context.Context, client *redispkg.Client, key string) (cachedResponse, bool) {
	raw, err := client.Get(ctx, key)
	if err != nil || raw == "" {
		return cachedResponse{}, false
	}
	var payload cachedResponse
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return cachedResponse{}, false
	}
	body, err := base64.StdEncoding.DecodeString(payload.BodyBase64)
	if err != nil {
		return cachedResponse{}, false
	}
	if payload.Status <= 0 {
		payload.Status = http.StatusOK
	}
	if payload.ContentType == "" {
		payload.ContentType = "application/json; charset=utf-8"
	}
	payload.body = body
	return payload, true
}

func matchPath(path string, patterns []string) bool {
	for _, pattern := range patterns {
		p := strings.TrimSpace(pattern)
		if p == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

func setCacheControl(c *gin.Context, ttlSeconds int) {
	ttl := strconv.Itoa(ttlSeconds)
	c.Header("Cache-Control", "public, s-maxage="+ttl+", stale-while-revalidate="+strconv.Itoa(staleWhileRevalidate))
}
