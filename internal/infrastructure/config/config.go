package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for AutoScribe Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site          SiteConfig          `yaml:"site"`
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Inference     InferenceConfig     `yaml:"inference"`
	Resolver      ResolverConfig      `yaml:"resolver"`
	Database      DatabaseConfig      `yaml:"database"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	API           APIConfig           `yaml:"api"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Timezone string         `yaml:"timezone"`
	Location LocationConfig `yaml:"location"`
}

// LocationConfig contains geographic coordinates for astronomical calculations.
type LocationConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// HomeAssistantConfig contains connection settings for the Home Assistant API.
//
// Inside a supervised add-on the URL is the supervisor proxy and the token
// comes from the SUPERVISOR_TOKEN environment variable.
type HomeAssistantConfig struct {
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Timeout int    `yaml:"timeout"`
}

// CatalogConfig contains entity catalog refresh settings.
type CatalogConfig struct {
	// RefreshInterval is how often the entity snapshot is re-fetched (seconds).
	RefreshInterval int `yaml:"refresh_interval"`
}

// InferenceConfig contains local model inference settings.
type InferenceConfig struct {
	// Enabled controls whether the model-assisted extraction path is ever
	// attempted. When false the availability state is Disabled and only the
	// rule-based path runs.
	Enabled bool `yaml:"enabled"`

	// ModelPath is the directory containing the local model files.
	ModelPath string `yaml:"model_path"`

	// ModelName is the model directory name under ModelPath.
	ModelName string `yaml:"model_name"`

	// Timeout is the hard per-request inference timeout (seconds).
	Timeout int `yaml:"timeout"`

	// RetryCooldown is the minimum time after a failure before the model
	// path is opportunistically retried (seconds).
	RetryCooldown int `yaml:"retry_cooldown"`
}

// ResolverConfig contains entity resolution settings.
type ResolverConfig struct {
	// AcceptanceThreshold is the minimum similarity score for a fuzzy match
	// to bind a mention to an entity. Below it the mention stays unresolved.
	AcceptanceThreshold float64 `yaml:"acceptance_threshold"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
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
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: AUTOSCRIBE_SECTION_KEY
// For example: AUTOSCRIBE_DATABASE_PATH, AUTOSCRIBE_HA_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "AutoScribe",
			Timezone: "UTC",
		},
		HomeAssistant: HomeAssistantConfig{
			URL:     "http://supervisor/core",
			Timeout: 10,
		},
		Catalog: CatalogConfig{
			RefreshInterval: 300,
		},
		Inference: InferenceConfig{
			Enabled:       false,
			ModelPath:     "/data/models",
			Timeout:       30,
			RetryCooldown: 60,
		},
		Resolver: ResolverConfig{
			AcceptanceThreshold: 0.45,
		},
		Database: DatabaseConfig{
			Path:        "./data/autoscribe.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "autoscribe-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8099,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Enabled:        true,
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: AUTOSCRIBE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Home Assistant
	if v := os.Getenv("AUTOSCRIBE_HA_URL"); v != "" {
		cfg.HomeAssistant.URL = v
	}
	if v := os.Getenv("AUTOSCRIBE_HA_TOKEN"); v != "" {
		cfg.HomeAssistant.Token = v
	}
	// Supervised add-ons receive the proxy token from the supervisor.
	if v := os.Getenv("SUPERVISOR_TOKEN"); v != "" && cfg.HomeAssistant.Token == "" {
		cfg.HomeAssistant.Token = v
	}

	// Inference
	if v := os.Getenv("AUTOSCRIBE_INFERENCE_ENABLED"); v != "" {
		cfg.Inference.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("AUTOSCRIBE_INFERENCE_MODEL_PATH"); v != "" {
		cfg.Inference.ModelPath = v
	}
	if v := os.Getenv("AUTOSCRIBE_INFERENCE_MODEL_NAME"); v != "" {
		cfg.Inference.ModelName = v
	}

	// Database
	if v := os.Getenv("AUTOSCRIBE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("AUTOSCRIBE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("AUTOSCRIBE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("AUTOSCRIBE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("AUTOSCRIBE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("AUTOSCRIBE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if c.Site.Location.Latitude < -90 || c.Site.Location.Latitude > 90 {
		errs = append(errs, "site.location.latitude must be between -90 and 90")
	}
	if c.Site.Location.Longitude < -180 || c.Site.Location.Longitude > 180 {
		errs = append(errs, "site.location.longitude must be between -180 and 180")
	}

	// Home Assistant validation
	if c.HomeAssistant.URL == "" {
		errs = append(errs, "home_assistant.url is required")
	}
	if c.HomeAssistant.Timeout <= 0 {
		errs = append(errs, "home_assistant.timeout must be positive")
	}

	// Catalog validation
	if c.Catalog.RefreshInterval <= 0 {
		errs = append(errs, "catalog.refresh_interval must be positive")
	}

	// Inference validation
	if c.Inference.Enabled {
		if c.Inference.ModelPath == "" {
			errs = append(errs, "inference.model_path is required when inference is enabled")
		}
		if c.Inference.ModelName == "" {
			errs = append(errs, "inference.model_name is required when inference is enabled")
		}
		if c.Inference.Timeout <= 0 {
			errs = append(errs, "inference.timeout must be positive")
		}
	}

	// Resolver validation
	if c.Resolver.AcceptanceThreshold <= 0 || c.Resolver.AcceptanceThreshold > 1 {
		errs = append(errs, "resolver.acceptance_threshold must be in (0, 1]")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
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

// GetHATimeout returns the Home Assistant request timeout as a Duration.
func (c *Config) GetHATimeout() time.Duration {
	return time.Duration(c.HomeAssistant.Timeout) * time.Second
}

// GetRefreshInterval returns the catalog refresh interval as a Duration.
func (c *Config) GetRefreshInterval() time.Duration {
	return time.Duration(c.Catalog.RefreshInterval) * time.Second
}

// GetInferenceTimeout returns the per-request inference timeout as a Duration.
func (c *Config) GetInferenceTimeout() time.Duration {
	return time.Duration(c.Inference.Timeout) * time.Second
}

// GetRetryCooldown returns the inference retry cooldown as a Duration.
func (c *Config) GetRetryCooldown() time.Duration {
	return time.Duration(c.Inference.RetryCooldown) * time.Second
}
