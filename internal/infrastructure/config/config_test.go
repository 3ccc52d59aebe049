package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
site:
  id: "test-site"
home_assistant:
  url: "http://homeassistant.local:8123"
  token: "test-token"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8099
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}

	if cfg.HomeAssistant.URL != "http://homeassistant.local:8123" {
		t.Errorf("HomeAssistant.URL = %q, want %q", cfg.HomeAssistant.URL, "http://homeassistant.local:8123")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
site:
  id: ""
database:
  path: "/tmp/test.db"
api:
  port: 8099
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(_ *Config) {},
			wantErr: false,
		},
		{
			name:    "missing site ID",
			mutate:  func(cfg *Config) { cfg.Site.ID = "" },
			wantErr: true,
		},
		{
			name:    "latitude out of range",
			mutate:  func(cfg *Config) { cfg.Site.Location.Latitude = 91 },
			wantErr: true,
		},
		{
			name:    "longitude out of range",
			mutate:  func(cfg *Config) { cfg.Site.Location.Longitude = -181 },
			wantErr: true,
		},
		{
			name:    "missing home assistant URL",
			mutate:  func(cfg *Config) { cfg.HomeAssistant.URL = "" },
			wantErr: true,
		},
		{
			name:    "zero home assistant timeout",
			mutate:  func(cfg *Config) { cfg.HomeAssistant.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "zero refresh interval",
			mutate:  func(cfg *Config) { cfg.Catalog.RefreshInterval = 0 },
			wantErr: true,
		},
		{
			name: "inference enabled without model name",
			mutate: func(cfg *Config) {
				cfg.Inference.Enabled = true
				cfg.Inference.ModelName = ""
			},
			wantErr: true,
		},
		{
			name: "inference enabled with model name",
			mutate: func(cfg *Config) {
				cfg.Inference.Enabled = true
				cfg.Inference.ModelName = "bert-intent"
			},
			wantErr: false,
		},
		{
			name:    "acceptance threshold zero",
			mutate:  func(cfg *Config) { cfg.Resolver.AcceptanceThreshold = 0 },
			wantErr: true,
		},
		{
			name:    "acceptance threshold above one",
			mutate:  func(cfg *Config) { cfg.Resolver.AcceptanceThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(cfg *Config) { cfg.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(cfg *Config) { cfg.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(cfg *Config) { cfg.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(cfg *Config) { cfg.API.Port = 70000 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
		HomeAssistant: HomeAssistantConfig{Timeout: 10},
		Catalog:       CatalogConfig{RefreshInterval: 300},
		Inference:     InferenceConfig{Timeout: 30, RetryCooldown: 60},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}

	if got := cfg.GetHATimeout().Seconds(); got != 10 {
		t.Errorf("GetHATimeout() = %v, want 10", got)
	}

	if got := cfg.GetRefreshInterval().Seconds(); got != 300 {
		t.Errorf("GetRefreshInterval() = %v, want 300", got)
	}

	if got := cfg.GetInferenceTimeout().Seconds(); got != 30 {
		t.Errorf("GetInferenceTimeout() = %v, want 30", got)
	}

	if got := cfg.GetRetryCooldown().Seconds(); got != 60 {
		t.Errorf("GetRetryCooldown() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("AUTOSCRIBE_HA_URL", "http://ha.example.com:8123")
	t.Setenv("AUTOSCRIBE_HA_TOKEN", "ha-token")
	t.Setenv("AUTOSCRIBE_INFERENCE_ENABLED", "true")
	t.Setenv("AUTOSCRIBE_INFERENCE_MODEL_NAME", "bert-intent")
	t.Setenv("AUTOSCRIBE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("AUTOSCRIBE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("AUTOSCRIBE_MQTT_USERNAME", "testuser")
	t.Setenv("AUTOSCRIBE_MQTT_PASSWORD", "testpass")
	t.Setenv("AUTOSCRIBE_API_HOST", "192.168.1.1")
	t.Setenv("AUTOSCRIBE_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.HomeAssistant.URL != "http://ha.example.com:8123" {
		t.Errorf("HomeAssistant.URL = %q, want %q", cfg.HomeAssistant.URL, "http://ha.example.com:8123")
	}

	if cfg.HomeAssistant.Token != "ha-token" {
		t.Errorf("HomeAssistant.Token = %q, want %q", cfg.HomeAssistant.Token, "ha-token")
	}

	if !cfg.Inference.Enabled {
		t.Error("Inference.Enabled = false, want true")
	}

	if cfg.Inference.ModelName != "bert-intent" {
		t.Errorf("Inference.ModelName = %q, want %q", cfg.Inference.ModelName, "bert-intent")
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestApplyEnvOverrides_SupervisorToken(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("SUPERVISOR_TOKEN", "supervisor-token")

	applyEnvOverrides(cfg)

	if cfg.HomeAssistant.Token != "supervisor-token" {
		t.Errorf("HomeAssistant.Token = %q, want %q", cfg.HomeAssistant.Token, "supervisor-token")
	}

	// An explicit token takes precedence over the supervisor token.
	cfg = defaultConfig()
	t.Setenv("AUTOSCRIBE_HA_TOKEN", "explicit-token")

	applyEnvOverrides(cfg)

	if cfg.HomeAssistant.Token != "explicit-token" {
		t.Errorf("HomeAssistant.Token = %q, want %q", cfg.HomeAssistant.Token, "explicit-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Site.ID == "" {
		t.Error("defaultConfig should have non-empty Site.ID")
	}

	if cfg.HomeAssistant.URL != "http://supervisor/core" {
		t.Errorf("defaultConfig HomeAssistant.URL = %q, want %q", cfg.HomeAssistant.URL, "http://supervisor/core")
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8099 {
		t.Errorf("defaultConfig API.Port = %d, want 8099", cfg.API.Port)
	}

	if cfg.Inference.Enabled {
		t.Error("defaultConfig should have inference disabled")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig should validate cleanly, got %v", err)
	}
}
