package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

var (
	logLevels   = []string{"debug", "info", "warn", "error"}
	blobDrivers = []string{"fs", "s3", "memory"}
)

// Validate checks enums and ranges. Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("log.level must be one of %s (got %q)", strings.Join(logLevels, ", "), c.Log.Level)
	}
	if strings.TrimSpace(c.Admin.Username) == "" {
		return fmt.Errorf("admin.username is required")
	}
	if c.QR.Size < 21 || c.QR.Size > 4096 {
		return fmt.Errorf("qr.size must be between 21 and 4096 (got %d)", c.QR.Size)
	}
	if c.QR.Workers < 1 {
		return fmt.Errorf("qr.workers must be >= 1 (got %d)", c.QR.Workers)
	}
	if c.QR.QueueSize < 1 {
		return fmt.Errorf("qr.queue_size must be >= 1 (got %d)", c.QR.QueueSize)
	}
	if !slices.Contains(blobDrivers, c.Blob.Driver) {
		return fmt.Errorf("blob.driver must be one of %s (got %q)", strings.Join(blobDrivers, ", "), c.Blob.Driver)
	}
	if c.Blob.Driver == "s3" && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("blob.s3.bucket is required for the s3 driver")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with / (got %q)", c.Metrics.Path)
	}
	return nil
}

// SlogLevel returns the configured level for log/slog.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
