package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"workspace": "/tmp/fundi-ws",
		"exec": {"base_timeout_seconds": 120, "grace_period_seconds": 10},
		"safety": {"restricted_paths": ["/opt/secrets"]},
		"tools": {
			"database": {"dsn": "postgres://localhost/dev", "max_rows": 50},
			"web_probe": {"timeout_seconds": 15}
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workspace != "/tmp/fundi-ws" {
		t.Errorf("Workspace = %q, want /tmp/fundi-ws", cfg.Workspace)
	}
	if got := cfg.Exec.BaseTimeout(); got != 120*time.Second {
		t.Errorf("BaseTimeout() = %v, want 120s", got)
	}
	if got := cfg.Exec.GracePeriod(); got != 10*time.Second {
		t.Errorf("GracePeriod() = %v, want 10s", got)
	}
	if len(cfg.Safety.RestrictedPaths) != 1 || cfg.Safety.RestrictedPaths[0] != "/opt/secrets" {
		t.Errorf("RestrictedPaths = %v, want [/opt/secrets]", cfg.Safety.RestrictedPaths)
	}
	if cfg.Tools.Database == nil || cfg.Tools.Database.MaxRows != 50 {
		t.Errorf("Database config not loaded: %+v", cfg.Tools.Database)
	}
	if cfg.Tools.WebProbe.TimeoutSeconds != 15 {
		t.Errorf("WebProbe.TimeoutSeconds = %d, want 15", cfg.Tools.WebProbe.TimeoutSeconds)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
workspace: /tmp/fundi-yaml
exec:
  base_timeout_seconds: 30
tools:
  web_probe:
    timeout_seconds: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workspace != "/tmp/fundi-yaml" {
		t.Errorf("Workspace = %q, want /tmp/fundi-yaml", cfg.Workspace)
	}
	if got := cfg.Exec.BaseTimeout(); got != 30*time.Second {
		t.Errorf("BaseTimeout() = %v, want 30s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := writeConfig(t, "bad.json", `{not json`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for invalid JSON")
	}
}

func TestLoadDatabaseRequiresDSN(t *testing.T) {
	path := writeConfig(t, "config.json", `{"tools": {"database": {"max_rows": 10}}}`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error for database without dsn")
	}
	if !strings.Contains(err.Error(), "dsn") {
		t.Errorf("error %q does not mention dsn", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FUNDI_WORKSPACE", "/env/workspace")
	t.Setenv("FUNDI_DB_DSN", "postgres://env/db")

	path := writeConfig(t, "config.json", `{"workspace": "/file/workspace"}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workspace != "/env/workspace" {
		t.Errorf("Workspace = %q, want env override /env/workspace", cfg.Workspace)
	}
	if cfg.Tools.Database == nil || cfg.Tools.Database.DSN != "postgres://env/db" {
		t.Errorf("Database DSN not overridden: %+v", cfg.Tools.Database)
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	if got := cfg.Exec.BaseTimeout(); got != 60*time.Second {
		t.Errorf("BaseTimeout() default = %v, want 60s", got)
	}
	if got := cfg.Exec.GracePeriod(); got != 5*time.Second {
		t.Errorf("GracePeriod() default = %v, want 5s", got)
	}
	if got := cfg.Metrics.ListenAddr(); got != ":9090" {
		t.Errorf("ListenAddr() default = %v, want :9090", got)
	}
	if got := cfg.Metrics.MetricsPath(); got != "/metrics" {
		t.Errorf("MetricsPath() default = %v, want /metrics", got)
	}
}

func TestValidateNegativeTimeout(t *testing.T) {
	cfg := &Config{Exec: ExecConfig{BaseTimeoutSeconds: -1}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for negative timeout")
	}
}
