// Package config handles loading and validating Fundi configuration.
// A Config is constructed once at startup and injected into every component
// that needs it; there is no global fallback configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

// Config is the root configuration for Fundi.
type Config struct {
	Workspace string         `json:"workspace,omitempty" yaml:"workspace,omitempty"` // Runtime root. Default: ~/.fundi/workspace. Override: FUNDI_WORKSPACE.
	Exec      ExecConfig     `json:"exec" yaml:"exec"`
	Safety    SafetyConfig   `json:"safety" yaml:"safety"`
	Tools     ToolsConfig    `json:"tools" yaml:"tools"`
	Metrics   *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"` // nil = metrics registered but not exposed
}

// ExecConfig configures the process supervisor.
type ExecConfig struct {
	BaseTimeoutSeconds int `json:"base_timeout_seconds" yaml:"base_timeout_seconds"` // Default: 60.
	GracePeriodSeconds int `json:"grace_period_seconds" yaml:"grace_period_seconds"` // SIGTERM→SIGKILL. Default: 5.
}

// BaseTimeout returns the base execution timeout with a default of 60s.
func (e ExecConfig) BaseTimeout() time.Duration {
	if e.BaseTimeoutSeconds > 0 {
		return time.Duration(e.BaseTimeoutSeconds) * time.Second
	}
	return 60 * time.Second
}

// GracePeriod returns the terminate→kill grace period with a default of 5s.
func (e ExecConfig) GracePeriod() time.Duration {
	if e.GracePeriodSeconds > 0 {
		return time.Duration(e.GracePeriodSeconds) * time.Second
	}
	return 5 * time.Second
}

// SafetyConfig configures the path safety gate.
type SafetyConfig struct {
	RestrictedPaths []string `json:"restricted_paths,omitempty" yaml:"restricted_paths,omitempty"` // Empty = built-in system defaults.
}

// ToolsConfig holds per-tool settings.
type ToolsConfig struct {
	Database *DatabaseToolConfig `json:"database,omitempty" yaml:"database,omitempty"` // nil = SQL query tool disabled.
	WebProbe WebProbeConfig      `json:"web_probe" yaml:"web_probe"`
}

// DatabaseToolConfig configures the direct SQL query tool.
type DatabaseToolConfig struct {
	DSN            string `json:"dsn" yaml:"dsn"`                         // PostgreSQL connection string. Override: FUNDI_DB_DSN.
	MaxRows        int    `json:"max_rows" yaml:"max_rows"`               // Default: 1000.
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"` // Default: 30.
}

// WebProbeConfig configures the web application probe tool.
type WebProbeConfig struct {
	TimeoutSeconds   int   `json:"timeout_seconds" yaml:"timeout_seconds"`       // Default: 30.
	MaxResponseBytes int64 `json:"max_response_bytes" yaml:"max_response_bytes"` // Default: 5 MB.
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"` // Listen address, e.g. ":9090". Default: ":9090".
	Path    string `json:"path" yaml:"path"` // Default: "/metrics".
}

// ListenAddr returns the metrics listen address with a default of ":9090".
func (m *MetricsConfig) ListenAddr() string {
	if m != nil && m.Addr != "" {
		return m.Addr
	}
	return ":9090"
}

// MetricsPath returns the exposition path with a default of "/metrics".
func (m *MetricsConfig) MetricsPath() string {
	if m != nil && m.Path != "" {
		return m.Path
	}
	return "/metrics"
}

// DefaultConfigPath returns the default config file path (~/.fundi/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "configs/fundi.yaml" // fallback for environments without a home dir
	}
	return filepath.Join(home, ".fundi", "config.yaml")
}

// Default returns a usable configuration without any config file: built-in
// restricted paths, 60s base timeout, database tool disabled.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnvOverrides()
	return cfg
}

// Load reads a JSON or YAML config file and returns a validated Config.
// The format is detected by file extension: .yml/.yaml for YAML, everything
// else for JSON. Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path %s: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", resolved, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(resolved)); ext {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config %s: %w", resolved, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config %s: %w", resolved, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies environment-variable overrides on top of file values.
func (c *Config) applyEnvOverrides() {
	if envWS := os.Getenv("FUNDI_WORKSPACE"); envWS != "" {
		c.Workspace = envWS
	}
	if envDSN := os.Getenv("FUNDI_DB_DSN"); envDSN != "" {
		if c.Tools.Database == nil {
			c.Tools.Database = &DatabaseToolConfig{}
		}
		c.Tools.Database.DSN = envDSN
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Exec.BaseTimeoutSeconds < 0 {
		return fmt.Errorf("exec.base_timeout_seconds must not be negative")
	}
	if c.Exec.GracePeriodSeconds < 0 {
		return fmt.Errorf("exec.grace_period_seconds must not be negative")
	}
	if db := c.Tools.Database; db != nil && db.DSN == "" {
		return fmt.Errorf("tools.database.dsn is required when the database tool is configured")
	}
	return nil
}

// resolvePath expands ~ to the user home directory and returns an absolute path.
func resolvePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}
