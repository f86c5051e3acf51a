package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Database       DatabaseRuntimeConfig
	Redis          RedisRuntimeConfig
	JWTSecret      string
	JWTTTL         time.Duration
	Admin          AdminConfig
	Site           SiteConfig
	Media          MediaConfig
	Backup         BackupConfig
	Content        ContentConfig
	Cache          CacheConfig
	AllowedOrigins []string
	Paths          RuntimePathsConfig
}

type DatabaseRuntimeConfig struct {
	Driver    string
	DSN       string
	Host      string
	Port      int
	User      string
	Password  string
	Name      string
	Charset   string
	ParseTime bool
	Loc       string
	SSLMode   string
	Path      string
	Params    map[string]string
}

type RedisRuntimeConfig struct {
	Enable   bool
	URL      string
	Host     string
	Port     int
	Username string
	Password string
	DB       int
	TLS      bool
}

// AdminConfig is the single dashboard account. PasswordHash is a bcrypt hash.
type AdminConfig struct {
	Username     string
	PasswordHash string
}

type SiteConfig struct {
	Name    string
	BaseURL string
}

// MediaConfig points at the S3 compatible bucket holding uploaded images.
type MediaConfig struct {
	Enable          bool
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
	Prefix          string
	UsePathStyle    bool
	MaxUploadMB     int
}

type BackupConfig struct {
	Enable   bool
	Interval time.Duration
	Keep     int
	Upload   bool
}

type ContentConfig struct {
	CategoryDeletePolicy string
}

type CacheConfig struct {
	TTL       time.Duration
	RateLimit int
}

type RuntimePathsConfig struct {
	Logs    string
	Backups string
}

type rawAppConfig struct {
	Port           int               `yaml:"port"`
	Env            string            `yaml:"env"`
	LogLevel       string            `yaml:"log_level"`
	DSN            string            `yaml:"dsn"`
	DatabaseURL    string            `yaml:"database_url"`
	RedisURL       string            `yaml:"redis_url"`
	Database       rawDatabaseConfig `yaml:"database"`
	Redis          rawRedisConfig    `yaml:"redis"`
	JWTSecret      string            `yaml:"jwt_secret"`
	JWTTTL         string            `yaml:"jwt_ttl"`
	Admin          rawAdminConfig    `yaml:"admin"`
	Site           rawSiteConfig     `yaml:"site"`
	Media          rawMediaConfig    `yaml:"media"`
	Backup         rawBackupConfig   `yaml:"backup"`
	Content        rawContentConfig  `yaml:"content"`
	Cache          rawCacheConfig    `yaml:"cache"`
	AllowedOrigins []string          `yaml:"allowed_origins"`
	Paths          rawPathsConfig    `yaml:"paths"`
	LogDir         string            `yaml:"log_dir"`
	BackupDir      string            `yaml:"backup_dir"`
}

type rawDatabaseConfig struct {
	Driver    string            `yaml:"driver"`
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	SSLMode   string            `yaml:"sslmode"`
	Path      string            `yaml:"path"`
	Params    map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	Enable   *bool  `yaml:"enable"`
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       *int   `yaml:"db"`
	TLS      *bool  `yaml:"tls"`
}

type rawAdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

type rawSiteConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
}

type rawMediaConfig struct {
	Enable          *bool  `yaml:"enable"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicURL       string `yaml:"public_url"`
	Prefix          string `yaml:"prefix"`
	UsePathStyle    *bool  `yaml:"use_path_style"`
	MaxUploadMB     int    `yaml:"max_upload_mb"`
}

type rawBackupConfig struct {
	Enable   *bool  `yaml:"enable"`
	Interval string `yaml:"interval"`
	Keep     int    `yaml:"keep"`
	Upload   *bool  `yaml:"upload"`
}

type rawContentConfig struct {
	CategoryDeletePolicy string `yaml:"category_delete_policy"`
}

type rawCacheConfig struct {
	TTL       string `yaml:"ttl"`
	RateLimit int    `yaml:"rate_limit"`
}

type rawPathsConfig struct {
	Logs    string `yaml:"logs"`
	Backups string `yaml:"backups"`
}

// Load reads the YAML file at configPath. A .env file next to it is loaded
// into the environment first and ${VAR} references in the YAML are expanded.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes and validates YAML config content.
func Parse(content []byte) (*AppConfig, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(expandEnv(content)))
	decoder.KnownFields(true)
	raw := rawAppConfig{}
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}

	cfg := defaultAppConfig()
	if err := applyRawAppConfig(&cfg, raw); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:     defaultPort,
		Env:      defaultEnv,
		LogLevel: defaultLogLevel,
		Database: DatabaseRuntimeConfig{
			Driver:    defaultDriver,
			Host:      defaultDBHost,
			User:      defaultDBUser,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
		},
		JWTTTL: defaultJWTTTL,
		Admin:  AdminConfig{Username: defaultAdminUsername},
		Site:   SiteConfig{Name: "Drawing Gallery", BaseURL: defaultSiteBaseURL},
		Media: MediaConfig{
			Region:      defaultMediaRegion,
			Prefix:      defaultMediaPrefix,
			MaxUploadMB: defaultMediaMaxUploadMB,
		},
		Backup: BackupConfig{
			Interval: defaultBackupInterval,
			Keep:     defaultBackupKeep,
		},
		Content: ContentConfig{CategoryDeletePolicy: DeletePolicyKeep},
		Cache:   CacheConfig{TTL: defaultCacheTTL, RateLimit: defaultRateLimit},
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) error {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = v
	}
	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)

	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if err := setDuration(&cfg.JWTTTL, raw.JWTTTL, "jwt_ttl"); err != nil {
		return err
	}
	if v := strings.TrimSpace(raw.Admin.Username); v != "" {
		cfg.Admin.Username = v
	}
	if v := strings.TrimSpace(raw.Admin.PasswordHash); v != "" {
		cfg.Admin.PasswordHash = v
	}
	if v := strings.TrimSpace(raw.Site.Name); v != "" {
		cfg.Site.Name = v
	}
	if v := strings.TrimSpace(raw.Site.BaseURL); v != "" {
		cfg.Site.BaseURL = v
	}

	cfg.Media = applyRawMediaConfig(cfg.Media, raw.Media)

	if raw.Backup.Enable != nil {
		cfg.Backup.Enable = *raw.Backup.Enable
	}
	if err := setDuration(&cfg.Backup.Interval, raw.Backup.Interval, "backup.interval"); err != nil {
		return err
	}
	if raw.Backup.Keep != 0 {
		cfg.Backup.Keep = raw.Backup.Keep
	}
	if raw.Backup.Upload != nil {
		cfg.Backup.Upload = *raw.Backup.Upload
	}

	if v := strings.TrimSpace(raw.Content.CategoryDeletePolicy); v != "" {
		cfg.Content.CategoryDeletePolicy = strings.ToLower(v)
	}
	if err := setDuration(&cfg.Cache.TTL, raw.Cache.TTL, "cache.ttl"); err != nil {
		return err
	}
	if raw.Cache.RateLimit != 0 {
		cfg.Cache.RateLimit = raw.Cache.RateLimit
	}

	if raw.AllowedOrigins != nil {
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	}

	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.Paths.Backups); v != "" {
		cfg.Paths.Backups = v
	}
	if v := strings.TrimSpace(raw.BackupDir); v != "" {
		cfg.Paths.Backups = v
	}

	cfg.Env = normalizeEnv(cfg.Env)
	cfg.Site.BaseURL = strings.TrimRight(cfg.Site.BaseURL, "/")
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	return nil
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawAppConfig) DatabaseRuntimeConfig {
	cfg := current
	db := raw.Database

	if v := strings.ToLower(strings.TrimSpace(db.Driver)); v != "" {
		cfg.Driver = v
	}
	for _, v := range []string{db.DSN, db.URL, raw.DSN, raw.DatabaseURL} {
		if v = strings.TrimSpace(v); v != "" {
			cfg.DSN = v
		}
	}
	if v := strings.TrimSpace(db.Host); v != "" {
		cfg.Host = v
	}
	if db.Port != 0 {
		cfg.Port = db.Port
	}
	if v := strings.TrimSpace(db.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(db.Username); v != "" {
		cfg.User = v
	}
	if db.Password != "" {
		cfg.Password = db.Password
	}
	if v := strings.TrimSpace(db.Name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(db.Charset); v != "" {
		cfg.Charset = v
	}
	if db.ParseTime != nil {
		cfg.ParseTime = *db.ParseTime
	}
	if v := strings.TrimSpace(db.Loc); v != "" {
		cfg.Loc = v
	}
	if v := strings.TrimSpace(db.SSLMode); v != "" {
		cfg.SSLMode = v
	}
	if v := strings.TrimSpace(db.Path); v != "" {
		cfg.Path = v
	}
	if db.Params != nil {
		cfg.Params = copyStringMap(db.Params)
	}
	return cfg
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawAppConfig) RedisRuntimeConfig {
	cfg := current
	r := raw.Redis

	if v := strings.TrimSpace(r.URL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(r.Host); v != "" {
		cfg.Host = v
	}
	if r.Port != 0 {
		cfg.Port = r.Port
	}
	if v := strings.TrimSpace(r.Username); v != "" {
		cfg.Username = v
	}
	if r.Password != "" {
		cfg.Password = r.Password
	}
	if r.DB != nil {
		cfg.DB = *r.DB
	}
	if r.TLS != nil {
		cfg.TLS = *r.TLS
	}

	// A configured URL turns Redis on unless enable says otherwise.
	cfg.Enable = cfg.URL != ""
	if r.Enable != nil {
		cfg.Enable = *r.Enable
	}
	cfg.URL = normalizeRedisRawURL(cfg.URL)
	return cfg
}

func applyRawMediaConfig(current MediaConfig, raw rawMediaConfig) MediaConfig {
	cfg := current
	if v := strings.TrimSpace(raw.Endpoint); v != "" {
		cfg.Endpoint = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(raw.Region); v != "" {
		cfg.Region = v
	}
	if v := strings.TrimSpace(raw.Bucket); v != "" {
		cfg.Bucket = v
	}
	if v := strings.TrimSpace(raw.AccessKeyID); v != "" {
		cfg.AccessKeyID = v
	}
	if v := strings.TrimSpace(raw.SecretAccessKey); v != "" {
		cfg.SecretAccessKey = v
	}
	if v := strings.TrimSpace(raw.PublicURL); v != "" {
		cfg.PublicURL = strings.TrimRight(v, "/")
	}
	if raw.Prefix != "" {
		cfg.Prefix = strings.Trim(strings.TrimSpace(raw.Prefix), "/")
	}
	if raw.UsePathStyle != nil {
		cfg.UsePathStyle = *raw.UsePathStyle
	}
	if raw.MaxUploadMB != 0 {
		cfg.MaxUploadMB = raw.MaxUploadMB
	}

	cfg.Enable = cfg.Bucket != ""
	if raw.Enable != nil {
		cfg.Enable = *raw.Enable
	}
	return cfg
}

func setDuration(dst *time.Duration, raw, key string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	*dst = d
	return nil
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("invalid database.driver %q, expected mysql, postgres or sqlite", c.Database.Driver)
	}
	if c.Database.Driver != DriverSQLite && (c.Database.Port < 1 || c.Database.Port > 65535) {
		return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	switch c.Content.CategoryDeletePolicy {
	case DeletePolicyKeep, DeletePolicyReject, DeletePolicyNullify:
	default:
		return fmt.Errorf("invalid content.category_delete_policy %q, expected keep, reject or nullify", c.Content.CategoryDeletePolicy)
	}
	if c.Backup.Enable && c.Backup.Interval < time.Minute {
		return fmt.Errorf("invalid backup.interval %s, expected at least 1m", c.Backup.Interval)
	}
	if c.Backup.Upload && !c.Media.Enable {
		return fmt.Errorf("backup.upload requires media to be configured")
	}
	if c.Media.Enable && c.Media.Bucket == "" {
		return fmt.Errorf("media.bucket is required when media is enabled")
	}
	return nil
}

// IsProduction reports whether the service runs with env=production.
func (c *AppConfig) IsProduction() bool { return c.Env == "production" }
