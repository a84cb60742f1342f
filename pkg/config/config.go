// Package config loads the capture configuration from YAML with
// environment overrides. Pluggable roles (profile, writer, identity
// resolver) are selected by explicit construction in code; the file only
// carries data the deployment varies.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/getreqlog/reqlog/pkg/pathtemplate"
)

// Writer selection values.
const (
	WriterDirect = "direct"
	WriterQueued = "queued"
)

// Config is the full configuration surface.
type Config struct {
	// Enabled is the master switch for request capture.
	Enabled bool `yaml:"enabled"`

	// Disk names the registered artifact store logs are written to.
	Disk string `yaml:"disk"`

	// BackupDisk optionally names a secondary store for archival
	// transfer. Empty disables backup.
	BackupDisk string `yaml:"backup_disk"`

	// StorageRoot is the local directory backing the default disk when
	// the CLI constructs stores itself.
	StorageRoot string `yaml:"storage_root"`

	// BackupRoot is the local directory backing the backup disk when the
	// CLI constructs stores itself.
	BackupRoot string `yaml:"backup_root"`

	// SensitiveKeywords are case-insensitive substrings redacted from
	// header and body field names.
	SensitiveKeywords []string `yaml:"sensitive_keywords"`

	// TruncateLimit caps logged string values in code points. 0 disables
	// truncation.
	TruncateLimit int `yaml:"truncate_limit"`

	// PathTemplate is the artifact naming pattern.
	PathTemplate string `yaml:"path_template"`

	// Format is the artifact serialization: json or line.
	Format string `yaml:"format"`

	// Channel optionally names a structured-log channel that overrides
	// disk-based writing.
	Channel string `yaml:"channel"`

	// CaptureRequestBody and CaptureResponseBody gate body logging.
	CaptureRequestBody  bool `yaml:"capture_request_body"`
	CaptureResponseBody bool `yaml:"capture_response_body"`

	// MaxBodyBytes bounds body buffering in the middleware.
	MaxBodyBytes int `yaml:"max_body_bytes"`

	// Writer selects the sink: direct (synchronous) or queued.
	Writer string `yaml:"writer"`

	// QueueName and QueueConnection configure the deferred writer.
	QueueName       string `yaml:"queue_name"`
	QueueConnection string `yaml:"queue_connection"`

	// Log configures the operational side-channel.
	Log LogConfig `yaml:"log"`
}

// LogConfig configures operational logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultSensitiveKeywords mirror the common credential-bearing field
// names redacted out of the box.
func DefaultSensitiveKeywords() []string {
	return []string{
		"password",
		"password_confirmation",
		"token",
		"secret",
		"authorization",
		"x-api-key",
		"x-csrf-token",
		"x-xsrf-token",
		"cookie",
		"session",
		"csrf",
		"access_token",
		"refresh_token",
		"client_secret",
		"client_id",
	}
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Enabled:            true,
		Disk:               "local",
		StorageRoot:        "storage",
		BackupRoot:         "backup",
		SensitiveKeywords:  DefaultSensitiveKeywords(),
		TruncateLimit:      1000,
		PathTemplate:       pathtemplate.DefaultTemplate,
		Format:             "json",
		CaptureRequestBody: true,
		// Response bodies are off by default; they dominate artifact
		// size under real traffic.
		CaptureResponseBody: false,
		MaxBodyBytes:        64 * 1024,
		Writer:              WriterDirect,
		QueueName:           "default",
		Log:                 LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from path, falling back to defaults when the
// file does not exist, then applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Defaults apply.
		default:
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot be defaulted
// around.
func (c Config) Validate() error {
	switch c.Format {
	case "json", "line":
	default:
		return fmt.Errorf("config: format must be json or line, got %q", c.Format)
	}
	switch c.Writer {
	case WriterDirect, WriterQueued:
	default:
		return fmt.Errorf("config: writer must be %s or %s, got %q", WriterDirect, WriterQueued, c.Writer)
	}
	if c.TruncateLimit < 0 {
		return fmt.Errorf("config: truncate_limit must be non-negative, got %d", c.TruncateLimit)
	}
	if c.PathTemplate == "" {
		return fmt.Errorf("config: path_template must not be empty")
	}
	return nil
}

// applyEnv overlays REQLOG_* environment variables on the configuration.
func applyEnv(c *Config) {
	if v, ok := os.LookupEnv("REQLOG_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Enabled = b
		}
	}
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString("REQLOG_DISK", &c.Disk)
	setString("REQLOG_BACKUP_DISK", &c.BackupDisk)
	setString("REQLOG_STORAGE_ROOT", &c.StorageRoot)
	setString("REQLOG_PATH_TEMPLATE", &c.PathTemplate)
	setString("REQLOG_FORMAT", &c.Format)
	setString("REQLOG_CHANNEL", &c.Channel)
	setString("REQLOG_LOG_LEVEL", &c.Log.Level)
	if v, ok := os.LookupEnv("REQLOG_TRUNCATE_LIMIT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.TruncateLimit = n
		}
	}
}
