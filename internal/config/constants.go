package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort             = 3000
	defaultEnv              = "development"
	defaultDriver           = DriverMySQL
	defaultDBHost           = "127.0.0.1"
	defaultMySQLPort        = 3306
	defaultPostgresPort     = 5432
	defaultDBUser           = "root"
	defaultDBName           = "drawing_gallery"
	defaultDBCharset        = "utf8mb4"
	defaultDBLoc            = "Local"
	defaultSQLitePath       = "gallery.db"
	defaultRedisHost        = "localhost"
	defaultRedisPort        = 6379
	defaultJWTTTL           = 7 * 24 * time.Hour
	defaultAdminUsername    = "admin"
	defaultSiteBaseURL      = "http://localhost:3000"
	defaultMediaRegion      = "auto"
	defaultMediaPrefix      = "uploads"
	defaultMediaMaxUploadMB = 20
	defaultBackupInterval   = 24 * time.Hour
	defaultBackupKeep       = 7
	defaultCacheTTL         = 60 * time.Second
	defaultRateLimit        = 120
	defaultLogLevel         = "info"
)

// Database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Category delete policies.
const (
	DeletePolicyKeep    = "keep"
	DeletePolicyReject  = "reject"
	DeletePolicyNullify = "nullify"
)
