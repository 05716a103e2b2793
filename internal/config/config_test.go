// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults and validation

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
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
matrix:
  homeserver: "https://matrix.example.org"
  username: "phrasebot"
  password: "secret"
  allowed_rooms:
    - "!room1:example.org"
  auto_join: true

bot:
  command_prefix: "!"
  send_timeout: "10s"

storage:
  driver: "sqlite"
  path: "./test.db"

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  addr: ":9100"
  path: "/m"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Matrix.Homeserver != "https://matrix.example.org" {
		t.Errorf("Matrix.Homeserver = %q", cfg.Matrix.Homeserver)
	}
	if len(cfg.Matrix.AllowedRooms) != 1 {
		t.Errorf("Matrix.AllowedRooms len = %d, want 1", len(cfg.Matrix.AllowedRooms))
	}
	if !cfg.Matrix.AutoJoin {
		t.Error("Matrix.AutoJoin = false, want true")
	}
	if cfg.Bot.CommandPrefix != "!" {
		t.Errorf("Bot.CommandPrefix = %q, want %q", cfg.Bot.CommandPrefix, "!")
	}
	if cfg.Bot.SendTimeout != 10*time.Second {
		t.Errorf("Bot.SendTimeout = %v, want %v", cfg.Bot.SendTimeout, 10*time.Second)
	}
	if cfg.Storage.Path != "./test.db" {
		t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, "./test.db")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != ":9100" || cfg.Metrics.Path != "/m" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if err := cfg.ValidateMatrix(); err != nil {
		t.Errorf("ValidateMatrix() error = %v", err)
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "phrasebot.toml", `
[matrix]
homeserver = "https://matrix.example.org"
username = "phrasebot"
password = "secret"

[bot]
send_timeout = "5s"

[storage]
driver = "redis"

[storage.redis]
addr = "localhost:6379"
db = 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Driver != DriverRedis {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, DriverRedis)
	}
	if cfg.Storage.Redis.Addr != "localhost:6379" || cfg.Storage.Redis.DB != 2 {
		t.Errorf("Storage.Redis = %+v", cfg.Storage.Redis)
	}
	if cfg.Bot.SendTimeout != 5*time.Second {
		t.Errorf("Bot.SendTimeout = %v, want 5s", cfg.Bot.SendTimeout)
	}
	if cfg.Matrix.Username != "phrasebot" {
		t.Errorf("Matrix.Username = %q", cfg.Matrix.Username)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_PHRASEBOT_PASSWORD", "from-env")

	path := writeConfig(t, "config.yaml", `
matrix:
  homeserver: "https://matrix.example.org"
  username: "bot"
  password: "${TEST_PHRASEBOT_PASSWORD}"
  recovery_key: "${TEST_PHRASEBOT_UNSET}"
storage:
  driver: memory
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Matrix.Password != "from-env" {
		t.Errorf("Matrix.Password = %q, want %q", cfg.Matrix.Password, "from-env")
	}
	if cfg.Matrix.RecoveryKey != "" {
		t.Errorf("Matrix.RecoveryKey = %q, want empty", cfg.Matrix.RecoveryKey)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	path := writeConfig(t, "config.yaml", "{}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Bot.CommandPrefix != "/" {
		t.Errorf("Bot.CommandPrefix = %q, want /", cfg.Bot.CommandPrefix)
	}
	if cfg.Bot.SendTimeout != 30*time.Second {
		t.Errorf("Bot.SendTimeout = %v, want 30s", cfg.Bot.SendTimeout)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("Storage.Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != filepath.Join("/tmp/xdg-data", "coven", "phrasebot.db") {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q", cfg.Metrics.Path)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad yaml", "c.yaml", "matrix: [", "parsing config file"},
		{"bad toml", "c.toml", "[matrix", "parsing config file"},
		{"bad duration", "c.yaml", "bot:\n  send_timeout: soon\n", "send_timeout"},
		{"unknown driver", "c.yaml", "storage:\n  driver: mongo\n", "storage.driver"},
		{"redis without addr", "c.yaml", "storage:\n  driver: redis\n", "storage.redis.addr"},
		{"bad log format", "c.yaml", "logging:\n  format: xml\n", "logging.format"},
		{"bad metrics path", "c.yaml", "metrics:\n  path: metrics\n", "metrics.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("Load() error = %v, want reading config file", err)
	}
}

func TestValidateMatrix(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.Matrix = MatrixConfig{Homeserver: "https://matrix.org", Username: "bot", Password: "pw"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no homeserver", func(c *Config) { c.Matrix.Homeserver = "" }, "matrix.homeserver is required"},
		{"bad scheme", func(c *Config) { c.Matrix.Homeserver = "ftp://matrix.org" }, "http or https"},
		{"no username", func(c *Config) { c.Matrix.Username = "" }, "matrix.username"},
		{"no password", func(c *Config) { c.Matrix.Password = "" }, "matrix.password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.ValidateMatrix()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateMatrix() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateMatrix() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("COVEN_PHRASEBOT_CONFIG", "/etc/phrasebot.yaml")
	if got := ConfigPath(); got != "/etc/phrasebot.yaml" {
		t.Errorf("ConfigPath() = %q", got)
	}

	t.Setenv("COVEN_PHRASEBOT_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := ConfigPath(); got != filepath.Join("/xdg", "coven", "phrasebot.yaml") {
		t.Errorf("ConfigPath() = %q", got)
	}
}
