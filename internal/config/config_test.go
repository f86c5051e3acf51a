package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, DeletePolicyKeep, cfg.Content.CategoryDeletePolicy)
	assert.False(t, cfg.Redis.Enable)
	assert.False(t, cfg.Media.Enable)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	assert.Equal(t,
		"root@tcp(127.0.0.1:3306)/drawing_gallery?charset=utf8mb4&loc=Local&parseTime=true",
		cfg.Database.DSNValue())
}

func TestParseFull(t *testing.T) {
	yml := `
port: 8080
env: Production
database:
  driver: postgres
  host: db
  user: gallery
  password: "p w"
  name: gallery
redis:
  url: cache:6379/1
jwt_secret: s3cret
jwt_ttl: 12h
admin:
  username: nabeel
  password_hash: "$2a$10$abcdefghijklmnopqrstuv"
site:
  base_url: https://drawing.example.com/
media:
  bucket: gallery
  endpoint: https://r2.example.com/
  public_url: https://cdn.example.com/
backup:
  enable: true
  interval: 6h
  upload: true
content:
  category_delete_policy: Nullify
allowed_origins: [" https://drawing.example.com/ ", ""]
`
	cfg, err := Parse([]byte(yml))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "host=db port=5432 user=gallery dbname=gallery sslmode=disable password='p w'", cfg.Database.DSNValue())
	assert.True(t, cfg.Redis.Enable)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URLValue())
	assert.Equal(t, 12*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "$2a$10$abcdefghijklmnopqrstuv", cfg.Admin.PasswordHash)
	assert.Equal(t, "https://drawing.example.com", cfg.Site.BaseURL)
	assert.True(t, cfg.Media.Enable)
	assert.Equal(t, "https://r2.example.com", cfg.Media.Endpoint)
	assert.Equal(t, 6*time.Hour, cfg.Backup.Interval)
	assert.Equal(t, DeletePolicyNullify, cfg.Content.CategoryDeletePolicy)
	assert.Equal(t, []string{"https://drawing.example.com"}, cfg.AllowedOrigins)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "nope: 1",
		"port":           "port: 70000",
		"driver":         "database:\n  driver: oracle",
		"delete policy":  "content:\n  category_delete_policy: cascade",
		"duration":       "jwt_ttl: forever",
		"upload w/o s3":  "backup:\n  upload: true",
		"short interval": "backup:\n  enable: true\n  interval: 1s",
	}
	for name, yml := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(yml))
			assert.Error(t, err)
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("GALLERY_TEST_SECRET", "from-env")
	out := expandEnv([]byte("a: ${GALLERY_TEST_SECRET}\nb: ${GALLERY_TEST_MISSING:-fallback}\nc: $2a$10$x"))
	assert.Equal(t, "a: from-env\nb: fallback\nc: $2a$10$x", string(out))
}

func TestLoadReadsDotEnvAndResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GALLERY_TEST_DOTENV=dotenv-secret\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(`
jwt_secret: ${GALLERY_TEST_DOTENV}
database:
  driver: sqlite
  path: data/gallery.db
paths:
  logs: var/log
`), 0o644))
	t.Cleanup(func() { os.Unsetenv("GALLERY_TEST_DOTENV") })

	cfg, err := Load(filepath.Join(dir, "config.yml"))
	require.NoError(t, err)
	assert.Equal(t, "dotenv-secret", cfg.JWTSecret)
	assert.Equal(t, filepath.Join(dir, "var", "log"), cfg.Paths.Logs)
	assert.Equal(t, filepath.Join(dir, "backups"), cfg.Paths.Backups)
	assert.Equal(t, filepath.Join(dir, "data", "gallery.db"), cfg.Database.DSNValue())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
