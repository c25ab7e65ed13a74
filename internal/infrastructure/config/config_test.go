package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testDeviceYAML is a minimal valid devices section.
const testDeviceYAML = `
devices:
  - mac: "a0dd6c0b3cd8"
    client_id: "bb2791f30a28776d6fe45943f1b68928"
    name: "Bedroom breezer"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
mqtt:
  broker:
    host: "broker.local"
    port: 8883
    tls: true
    tls_insecure: true
    client_id: "test-client"
  auth:
    username: "rusclimate"
    password: "secret"
  qos: 0
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
` + testDeviceYAML

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}

	if !cfg.MQTT.Broker.TLSInsecure {
		t.Error("MQTT.Broker.TLSInsecure = false, want true")
	}

	if len(cfg.Devices) != 1 {
		t.Fatalf("len(Devices) = %d, want 1", len(cfg.Devices))
	}

	if cfg.Devices[0].MAC != "a0dd6c0b3cd8" {
		t.Errorf("Devices[0].MAC = %q, want %q", cfg.Devices[0].MAC, "a0dd6c0b3cd8")
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Only devices provided; everything else should default.
	cfg, err := Load(writeConfig(t, testDeviceYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Topics.Namespace != "rusclimate" {
		t.Errorf("Topics.Namespace = %q, want %q", cfg.Topics.Namespace, "rusclimate")
	}

	if cfg.Topics.DeviceType != "69" {
		t.Errorf("Topics.DeviceType = %q, want %q", cfg.Topics.DeviceType, "69")
	}

	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want 8883", cfg.MQTT.Broker.Port)
	}

	if cfg.MQTT.Relay.Buffer != 64 {
		t.Errorf("MQTT.Relay.Buffer = %d, want 64", cfg.MQTT.Relay.Buffer)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "mqtt: [not: valid"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BREEZER_MQTT_HOST", "env-broker.local")
	t.Setenv("BREEZER_MQTT_PASSWORD", "env-secret")

	cfg, err := Load(writeConfig(t, testDeviceYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "env-broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want env override", cfg.MQTT.Broker.Host)
	}

	if cfg.MQTT.Auth.Password != "env-secret" {
		t.Errorf("MQTT.Auth.Password = %q, want env override", cfg.MQTT.Auth.Password)
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(_ *Config) {},
		},
		{
			name:    "missing host",
			mutate:  func(c *Config) { c.MQTT.Broker.Host = "" },
			wantErr: "mqtt.broker.host",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.MQTT.Broker.Port = 70000 },
			wantErr: "mqtt.broker.port",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "zero relay buffer",
			mutate:  func(c *Config) { c.MQTT.Relay.Buffer = 0 },
			wantErr: "mqtt.relay.buffer",
		},
		{
			name:    "no devices",
			mutate:  func(c *Config) { c.Devices = nil },
			wantErr: "at least one device",
		},
		{
			name:    "short mac",
			mutate:  func(c *Config) { c.Devices[0].MAC = "a0dd6c" },
			wantErr: "devices[0].mac",
		},
		{
			name:    "non-hex mac",
			mutate:  func(c *Config) { c.Devices[0].MAC = "a0dd6c0b3cdZ" },
			wantErr: "devices[0].mac",
		},
		{
			name:    "short client id",
			mutate:  func(c *Config) { c.Devices[0].ClientID = "short" },
			wantErr: "devices[0].client_id",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Devices = []DeviceConfig{{
				MAC:      "a0dd6c0b3cd8",
				ClientID: "bb2791f30a28776d6fe45943f1b68928",
			}}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
