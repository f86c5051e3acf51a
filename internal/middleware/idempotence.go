package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	redispkg "github.com/drawing-gallery/core/internal/pkg/redis"
	"github.com/drawing-gallery/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotenceHeader = "X-Idempotence"
	idempotenceTTL    = 60 * time.Second
	idempotencePrefix = "gallery:idempotence:"
)

// IdempotenceOptions scopes the middleware. Patterns match like
// HTTPCacheOptions.SkipPaths. HeaderOnlyPaths are deduplicated only when the
// client sends X-Idempotence, so repeated creates with the same body still
// go through.
type IdempotenceOptions struct {
	SkipPaths       []string
	HeaderOnlyPaths []string
}

// Idempotence rejects a POST repeated within a minute, keyed by the
// X-Idempotence header or a hash of the request. A request still in flight
// and one that already succeeded both answer 409. Failed requests release the
// key.
func Idempotence(client *redispkg.Client, opts IdempotenceOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		path := strings.TrimRight(c.Request.URL.Path, "/")
		if matchPath(path, opts.SkipPaths) {
			c.Next()
			return
		}
		key, err := idempotenceKey(c, matchPath(path, opts.HeaderOnlyPaths))
		if err != nil || key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		rdb := client.Raw()
		redisKey := idempotencePrefix + key

		ok, err := rdb.SetNX(ctx, redisKey, "0", idempotenceTTL).Result()
		if err != nil {
			c.Next()
			return
		}
		if !ok {
			msg := "the same request already succeeded, retry after 60 seconds"
			if val, _ := client.Get(ctx, redisKey); val == "0" {
				msg = "the same request is still being processed"
			}
			response.Conflict(c, msg)
			return
		}

		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 300 {
			rdb.Set(ctx, redisKey, "1", redis.KeepTTL)
		} else {
			rdb.Del(ctx, redisKey)
		}
	}
}

func idempotenceKey(c *gin.Context, headerOnly bool) (string, error) {
	if hdr := c.GetHeader(IdempotenceHeader); hdr != "" {
		return hdr, nil
	}
	if headerOnly {
		return "", nil
	}
	// Multipart uploads are large and never replayed by the admin UI.
	if c.ContentType() == "multipart/form-data" {
		return "", nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	raw := c.Request.Method + "|" + c.Request.URL.String() + "|" + string(body) + "|" +
		c.Request.UserAgent() + "|" + c.ClientIP() + "|" + NormalizeToken(c.GetHeader("Authorization"))
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:]), nil
}
