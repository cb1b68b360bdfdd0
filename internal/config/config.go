// Package config loads FireSim settings from an optional YAML file overlaid by
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when FIRESIM_CONFIG is not set.
const DefaultPath = "firesim.yaml"

// EnvProduction is the Server.Env value that enables production hardening.
const EnvProduction = "production"

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Admin    AdminConfig    `yaml:"admin"`
	ImageGen ImageGenConfig `yaml:"imagegen"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Email    EmailConfig    `yaml:"email"`
	Logging  LoggingConfig  `yaml:"logging"`
	Scenario ScenarioConfig `yaml:"scenario"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	Env       string `yaml:"env"`
	CSRFKey   string `yaml:"csrf_key"` // 64 hex chars; random per process when empty outside production
	StaticDir string `yaml:"static_dir"`
	// SlowRequestMs is the request duration logged as slow; 0 uses the middleware default.
	SlowRequestMs int `yaml:"slow_request_ms"`
	// RateLimit is the per-client request budget per second.
	RateLimit int `yaml:"rate_limit"`
}

// SlowRequest returns the slow request log threshold.
func (s ServerConfig) SlowRequest() time.Duration {
	return time.Duration(s.SlowRequestMs) * time.Millisecond
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	SlowQueryMs int    `yaml:"slow_query_ms"` // 0 uses the storage default
	// AuditRetentionDays drops older audit events at startup; 0 keeps everything.
	AuditRetentionDays int `yaml:"audit_retention_days"`
}

// AuditRetention returns how long audit events are kept, or zero for forever.
func (d DatabaseConfig) AuditRetention() time.Duration {
	return time.Duration(d.AuditRetentionDays) * 24 * time.Hour
}

// SlowQuery returns the slow query log threshold.
func (d DatabaseConfig) SlowQuery() time.Duration {
	return time.Duration(d.SlowQueryMs) * time.Millisecond
}

// AdminConfig holds the facilitator password gate.
type AdminConfig struct {
	Password string `yaml:"password"`
}

// ImageGenConfig configures the infographic generator.
type ImageGenConfig struct {
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// UploadsConfig configures local storage for report images.
type UploadsConfig struct {
	Dir string `yaml:"dir"`
}

// EmailConfig configures report-submitted notifications.
type EmailConfig struct {
	ResendKey string   `yaml:"resend_key"`
	From      string   `yaml:"from"`
	NotifyTo  []string `yaml:"notify_to"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ScenarioConfig overrides scenario content that differs per deployment.
type ScenarioConfig struct {
	InfoCards   []string `yaml:"info_cards"`
	DemoSession *bool    `yaml:"demo_session"` // nil seeds outside production only
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8080", Env: "development", StaticDir: "static", RateLimit: 20},
		Database: DatabaseConfig{Path: "firesim.db", AuditRetentionDays: 90},
		Admin:    AdminConfig{Password: "6749467"},
		ImageGen: ImageGenConfig{Model: "gemini-3-pro-image-preview", Timeout: 55 * time.Second},
		Uploads:  UploadsConfig{Dir: "uploads"},
		Email:    EmailConfig{From: "FireSim <noreply@firesim.local>"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (if it exists) over the defaults, then applies environment overrides.
// A missing file is not an error; a malformed one is.
// POST: returned config has passed Validate
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := expandEnvVars(string(data), getenv)
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if cfg.ImageGen.TimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.ImageGen.TimeoutRaw)
		if err != nil {
			return nil, fmt.Errorf("imagegen.timeout: %w", err)
		}
		cfg.ImageGen.Timeout = d
	}

	cfg.applyEnv(getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with its value.
func expandEnvVars(s string, getenv func(string) string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Addr, "FIRESIM_ADDR")
	set(&c.Server.Env, "FIRESIM_ENV")
	set(&c.Server.CSRFKey, "FIRESIM_CSRF_KEY")
	set(&c.Database.Path, "FIRESIM_DB")
	setInt := func(dst *int, key string) {
		if v, err := strconv.Atoi(getenv(key)); err == nil && v > 0 {
			*dst = v
		}
	}
	setInt(&c.Database.SlowQueryMs, "FIRESIM_SLOW_QUERY_MS")
	setInt(&c.Server.SlowRequestMs, "FIRESIM_SLOW_REQUEST_MS")
	setInt(&c.Server.RateLimit, "FIRESIM_RATE_LIMIT")
	set(&c.Admin.Password, "FIRESIM_ADMIN_PASSWORD")
	set(&c.ImageGen.APIKey, "GEMINI_API_KEY")
	set(&c.ImageGen.Model, "FIRESIM_IMAGE_MODEL")
	set(&c.Uploads.Dir, "FIRESIM_UPLOADS_DIR")
	set(&c.Email.ResendKey, "FIRESIM_RESEND_KEY")
	set(&c.Logging.Level, "FIRESIM_LOG_LEVEL")
	set(&c.Logging.Format, "FIRESIM_LOG_FORMAT")
	if v := getenv("FIRESIM_NOTIFY_TO"); v != "" {
		c.Email.NotifyTo = nil
		for _, addr := range strings.Split(v, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				c.Email.NotifyTo = append(c.Email.NotifyTo, addr)
			}
		}
	}
}

// Validate checks that the configuration is usable.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("server.rate_limit must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Admin.Password == "" {
		return fmt.Errorf("admin.password is required")
	}
	if c.ImageGen.Timeout <= 0 {
		return fmt.Errorf("imagegen.timeout must be positive")
	}
	if c.Uploads.Dir == "" {
		return fmt.Errorf("uploads.dir is required")
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.IsProduction() && c.Server.CSRFKey == "" {
		return fmt.Errorf("server.csrf_key is required in production")
	}
	return nil
}

// IsProduction reports whether the server runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.Server.Env == EnvProduction
}

// SeedDemoSession reports whether the demo session should be created at startup.
func (c *Config) SeedDemoSession() bool {
	if c.Scenario.DemoSession != nil {
		return *c.Scenario.DemoSession
	}
	return !c.IsProduction()
}

// NotificationsEnabled reports whether report-submitted emails have somewhere to go.
func (c *Config) NotificationsEnabled() bool {
	return len(c.Email.NotifyTo) > 0
}

// NewLogger builds the slog logger described by the logging section.
// PRE: Validate has passed
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Logging.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
