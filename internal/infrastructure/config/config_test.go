package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
homeassistant:
  url: "ws://ha.test:8123/api/websocket"
  token: "test-token"
naming:
  locale: "de"
overrides:
  backend: "file"
  path: "/tmp/overrides.json"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
  topic_prefix: "em"
api:
  host: "0.0.0.0"
  port: 8080
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HomeAssistant.Token != "test-token" {
		t.Errorf("HomeAssistant.Token = %q, want %q", cfg.HomeAssistant.Token, "test-token")
	}
	if cfg.Naming.Locale != "de" {
		t.Errorf("Naming.Locale = %q, want %q", cfg.Naming.Locale, "de")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.MQTT.TopicPrefix != "em" {
		t.Errorf("MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "em")
	}
	// Untouched sections keep their defaults.
	if cfg.Batch.DefaultLimit != 10 {
		t.Errorf("Batch.DefaultLimit = %d, want 10", cfg.Batch.DefaultLimit)
	}
	if got := cfg.GetRequestTimeout(); got != 30*time.Second {
		t.Errorf("GetRequestTimeout() = %v, want 30s", got)
	}
}

func TestLoad_OfflineSnapshotNeedsNoToken(t *testing.T) {
	content := `
homeassistant:
  snapshot_file: "./testdata/registry.yaml"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.HomeAssistant.Offline() {
		t.Error("Offline() = false, want true")
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv("ENTITYMANAGER_HA_TOKEN", "env-token")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.HomeAssistant.Token != "env-token" {
		t.Errorf("HomeAssistant.Token = %q, want %q", cfg.HomeAssistant.Token, "env-token")
	}
	if cfg.Overrides.Backend != OverridesBackendFile {
		t.Errorf("Overrides.Backend = %q, want %q", cfg.Overrides.Backend, OverridesBackendFile)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
homeassistant:
  token: "file-token"
database:
  path: "/tmp/file.db"
`
	t.Setenv("ENTITYMANAGER_HA_TOKEN", "env-token")
	t.Setenv("ENTITYMANAGER_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("ENTITYMANAGER_OVERRIDES_PATH", "/tmp/env.json")
	t.Setenv("ENTITYMANAGER_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HomeAssistant.Token != "env-token" {
		t.Errorf("HomeAssistant.Token = %q, want env-token", cfg.HomeAssistant.Token)
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q, want /tmp/env.db", cfg.Database.Path)
	}
	if cfg.Overrides.Path != "/tmp/env.json" {
		t.Errorf("Overrides.Path = %q, want /tmp/env.json", cfg.Overrides.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
homeassistant:
  token: ""
naming:
  locale: "klingon"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	for _, want := range []string{"homeassistant.token", "naming.locale"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.HomeAssistant.Token = "token"
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults with token",
			modify: func(*Config) {},
		},
		{
			name:    "missing url",
			modify:  func(c *Config) { c.HomeAssistant.URL = "" },
			wantErr: "homeassistant.url is required",
		},
		{
			name:    "bad url scheme",
			modify:  func(c *Config) { c.HomeAssistant.URL = "ftp://ha" },
			wantErr: "homeassistant.url must start with",
		},
		{
			name:    "zero request timeout",
			modify:  func(c *Config) { c.HomeAssistant.RequestTimeout = 0 },
			wantErr: "homeassistant.request_timeout",
		},
		{
			name:   "german locale alias",
			modify: func(c *Config) { c.Naming.Locale = "German" },
		},
		{
			name:    "unknown backend",
			modify:  func(c *Config) { c.Overrides.Backend = "redis" },
			wantErr: "overrides.backend must be file or sqlite",
		},
		{
			name:    "file backend without path",
			modify:  func(c *Config) { c.Overrides.Path = "" },
			wantErr: "overrides.path is required",
		},
		{
			name: "sqlite backend cannot watch",
			modify: func(c *Config) {
				c.Overrides.Backend = OverridesBackendSQLite
				c.Overrides.Watch = true
			},
			wantErr: "overrides.watch",
		},
		{
			name: "sqlite backend without watch",
			modify: func(c *Config) {
				c.Overrides.Backend = OverridesBackendSQLite
				c.Overrides.Watch = false
			},
		},
		{
			name:    "zero batch limit",
			modify:  func(c *Config) { c.Batch.DefaultLimit = 0 },
			wantErr: "batch.default_limit",
		},
		{
			name:    "empty database path",
			modify:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path is required",
		},
		{
			name:    "invalid qos",
			modify:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos must be 0, 1, or 2",
		},
		{
			name: "mqtt enabled without prefix",
			modify: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.TopicPrefix = ""
			},
			wantErr: "mqtt.topic_prefix",
		},
		{
			name:    "invalid port",
			modify:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port must be between 1 and 65535",
		},
		{
			name:    "zero websocket ping interval",
			modify:  func(c *Config) { c.API.WebSocket.PingInterval = 0 },
			wantErr: "api.websocket.ping_interval",
		},
		{
			name:    "influxdb enabled without url",
			modify:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want containing %q", err, tt.wantErr)
			}
		})
	}
}
