package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/drawing-gallery/core/internal/config"
	"github.com/drawing-gallery/core/internal/modules/auth/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, opts ...func(*config.AppConfig)) *App {
	t.Helper()
	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)

	cfg, err := config.Parse([]byte("database:\n  driver: sqlite\n  path: \":memory:\"\nsite:\n  base_url: https://gallery.example.com\n"))
	require.NoError(t, err)
	cfg.Admin.Username = "admin"
	cfg.Admin.PasswordHash = hash
	cfg.JWTSecret = "test-secret"
	cfg.Paths.Logs = t.TempDir()
	cfg.Paths.Backups = t.TempDir()
	for _, opt := range opts {
		opt(cfg)
	}

	a, err := New(zap.NewNop(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

func serve(a *App, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	return w
}

func TestEndToEnd(t *testing.T) {
	a := newTestApp(t)

	w := serve(a, http.MethodGet, "/api/v1/ping", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(a, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(a, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	w = serve(a, http.MethodPost, "/api/v1/categories", "", map[string]string{"name": "Animals"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(a, http.MethodPost, "/api/v1/categories", login.Token, map[string]string{"name": "Animals"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cat struct {
		ID        string `json:"id"`
		CustomURL string `json:"custom_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cat))
	assert.Equal(t, "animals", cat.CustomURL)

	w = serve(a, http.MethodPost, "/api/v1/posts", login.Token, map[string]any{
		"title": "Red Fox", "content": "<p>fox</p>", "categoryId": cat.ID, "status": "Published",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"url_slug":"red-fox"`)

	w = serve(a, http.MethodGet, "/api/v1/posts/red-fox", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"custom_url":"animals"`)

	w = serve(a, http.MethodGet, "/api/v1/categories/"+cat.ID+"/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = serve(a, http.MethodGet, "/sitemap.xml", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<loc>https://gallery.example.com/red-fox</loc>")

	w = serve(a, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(a, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gallery_http_requests_total")

	w = serve(a, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRepeatedPostsWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newTestApp(t, func(cfg *config.AppConfig) {
		cfg.Redis.Enable = true
		cfg.Redis.URL = "redis://" + mr.Addr()
	})

	var token string
	for i := 0; i < 2; i++ {
		w := serve(a, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": "hunter2"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var login struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
		token = login.Token
	}

	for _, want := range []string{"animals", "animals-1", "animals-2"} {
		w := serve(a, http.MethodPost, "/api/v1/categories", token, map[string]string{"name": "Animals"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var cat struct {
			CustomURL string `json:"custom_url"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cat))
		assert.Equal(t, want, cat.CustomURL)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", strings.NewReader(`{"title":"Red Fox","content":"fox"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Idempotence", "red-fox-1")
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/v1/posts", strings.NewReader(`{"title":"Red Fox","content":"fox"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Idempotence", "red-fox-1")
	w = httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMatchOriginPattern(t *testing.T) {
	assert.True(t, matchOriginPattern("https://gallery.example.com", "gallery.example.com"))
	assert.True(t, matchOriginPattern("*.example.com", "cdn.example.com"))
	assert.True(t, matchOriginPattern("localhost:*", "localhost:3000"))
	assert.False(t, matchOriginPattern("*.example.com", "example.org"))
	assert.Equal(t, "a.example.com:8080", extractOriginHost("https://a.example.com:8080"))
}
