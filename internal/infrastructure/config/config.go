package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the entity manager.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Naming        NamingConfig        `yaml:"naming"`
	Overrides     OverridesConfig     `yaml:"overrides"`
	Batch         BatchConfig         `yaml:"batch"`
	Database      DatabaseConfig      `yaml:"database"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	API           APIConfig           `yaml:"api"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// HomeAssistantConfig contains the connection to the host registry.
//
// When SnapshotFile is set the entity manager works offline against that
// export instead of connecting.
type HomeAssistantConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	RequestTimeout int    `yaml:"request_timeout"`
	SnapshotFile   string `yaml:"snapshot_file"`
}

// Offline reports whether a snapshot file replaces the live connection.
func (c HomeAssistantConfig) Offline() bool {
	return c.SnapshotFile != ""
}

// NamingConfig selects the type-token table and area strategy.
type NamingConfig struct {
	Locale          string   `yaml:"locale"`
	LegacyRoomGuess bool     `yaml:"legacy_room_guess"`
	LegacyRooms     []string `yaml:"legacy_rooms"`
}

// OverridesConfig selects where naming overrides are stored.
type OverridesConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Watch   bool   `yaml:"watch"`
}

// Override backends.
const (
	OverridesBackendFile   = "file"
	OverridesBackendSQLite = "sqlite"
)

// BatchConfig contains batch analysis defaults.
type BatchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig       `yaml:"cors"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains settings for the live progress stream.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"` // seconds
	PongTimeout    int `yaml:"pong_timeout"`  // seconds
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

var knownLocales = []string{"generic", "en", "de", "german"}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults), skipped when path is empty
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ENTITYMANAGER_SECTION_KEY
// For example: ENTITYMANAGER_HA_TOKEN, ENTITYMANAGER_DATABASE_PATH
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		HomeAssistant: HomeAssistantConfig{
			URL:            "ws://homeassistant.local:8123/api/websocket",
			RequestTimeout: 30,
		},
		Naming: NamingConfig{
			Locale: "generic",
		},
		Overrides: OverridesConfig{
			Backend: OverridesBackendFile,
			Path:    "./data/naming_overrides.json",
			Watch:   true,
		},
		Batch: BatchConfig{
			DefaultLimit: 10,
		},
		Database: DatabaseConfig{
			Path:        "./data/entitymanager.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "entitymanager",
			},
			QoS:         1,
			TopicPrefix: "entitymanager",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8099,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 120,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "entitymanager",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ENTITYMANAGER_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Home Assistant
	if v := os.Getenv("ENTITYMANAGER_HA_URL"); v != "" {
		cfg.HomeAssistant.URL = v
	}
	if v := os.Getenv("ENTITYMANAGER_HA_TOKEN"); v != "" {
		cfg.HomeAssistant.Token = v
	}
	if v := os.Getenv("ENTITYMANAGER_HA_SNAPSHOT_FILE"); v != "" {
		cfg.HomeAssistant.SnapshotFile = v
	}

	// Storage
	if v := os.Getenv("ENTITYMANAGER_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("ENTITYMANAGER_OVERRIDES_PATH"); v != "" {
		cfg.Overrides.Path = v
	}

	// MQTT
	if v := os.Getenv("ENTITYMANAGER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ENTITYMANAGER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ENTITYMANAGER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("ENTITYMANAGER_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("ENTITYMANAGER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("ENTITYMANAGER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
// Every problem is reported, not just the first.
func (c *Config) Validate() error {
	var errs []string

	// Home Assistant validation
	if !c.HomeAssistant.Offline() {
		if c.HomeAssistant.URL == "" {
			errs = append(errs, "homeassistant.url is required unless homeassistant.snapshot_file is set")
		} else if !hasScheme(c.HomeAssistant.URL, "ws://", "wss://", "http://", "https://") {
			errs = append(errs, "homeassistant.url must start with ws://, wss://, http:// or https://")
		}
		if c.HomeAssistant.Token == "" {
			errs = append(errs, "homeassistant.token is required (set ENTITYMANAGER_HA_TOKEN environment variable)")
		}
	}
	if c.HomeAssistant.RequestTimeout < 1 {
		errs = append(errs, "homeassistant.request_timeout must be at least 1 second")
	}

	// Naming validation
	if !slices.Contains(knownLocales, strings.ToLower(c.Naming.Locale)) {
		errs = append(errs, fmt.Sprintf("naming.locale must be one of %s", strings.Join(knownLocales, ", ")))
	}

	// Overrides validation
	switch c.Overrides.Backend {
	case OverridesBackendFile:
		if c.Overrides.Path == "" {
			errs = append(errs, "overrides.path is required for the file backend")
		}
	case OverridesBackendSQLite:
		if c.Overrides.Watch {
			errs = append(errs, "overrides.watch is only supported for the file backend")
		}
	default:
		errs = append(errs, "overrides.backend must be file or sqlite")
	}

	// Batch validation
	if c.Batch.DefaultLimit < 1 {
		errs = append(errs, "batch.default_limit must be a positive integer")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.WebSocket.PingInterval < 1 || c.API.WebSocket.PongTimeout < 1 {
		errs = append(errs, "api.websocket.ping_interval and api.websocket.pong_timeout must be at least 1")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func hasScheme(url string, schemes ...string) bool {
	for _, s := range schemes {
		if strings.HasPrefix(url, s) {
			return true
		}
	}
	return false
}

// GetRequestTimeout returns the Home Assistant request timeout as a Duration.
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.HomeAssistant.RequestTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
