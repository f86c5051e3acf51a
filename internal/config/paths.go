package config

import (
	"path/filepath"
	"strings"
)

// resolveRuntimePath makes raw absolute against baseDir, falling back to
// fallbackSubdir when raw is empty.
func resolveRuntimePath(baseDir, raw, fallbackSubdir string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		target = fallbackSubdir
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	abs, err := filepath.Abs(filepath.Join(baseDir, target))
	if err != nil {
		return filepath.Clean(filepath.Join(baseDir, target))
	}
	return abs
}

// resolvePaths anchors relative runtime directories at the config file's
// directory.
func (c *AppConfig) resolvePaths(baseDir string) {
	c.Paths.Logs = resolveRuntimePath(baseDir, c.Paths.Logs, "logs")
	c.Paths.Backups = resolveRuntimePath(baseDir, c.Paths.Backups, "backups")
	if c.Database.Driver == DriverSQLite && c.Database.DSN == "" && c.Database.Path != ":memory:" {
		c.Database.Path = resolveRuntimePath(baseDir, c.Database.Path, defaultSQLitePath)
	}
}
