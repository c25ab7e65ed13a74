package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Breezer Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Topics   TopicsConfig   `yaml:"topics"`
	Devices  []DeviceConfig `yaml:"devices"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	Relay     RelayConfig         `yaml:"relay"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
//
// The ASP-100 vendor broker listens on 8883 with TLS but presents a
// certificate that does not verify against any public CA. TLSInsecure
// therefore defaults to true: the transport is encrypted but neither
// the certificate nor the hostname is checked.
type MQTTBrokerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	TLS         bool   `yaml:"tls"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	ClientID    string `yaml:"client_id"`
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

// RelayConfig contains inbound message relay settings.
type RelayConfig struct {
	// Buffer is the capacity of the inbound event queue bridging the
	// network callback and the application consumer loop. When full,
	// new events are dropped rather than blocking the network thread.
	Buffer int `yaml:"buffer"`
}

// TopicsConfig contains the topic namespace shared by all devices.
type TopicsConfig struct {
	// Namespace is the first topic segment (vendor namespace).
	Namespace string `yaml:"namespace"`

	// DeviceType is the second topic segment identifying the appliance family.
	DeviceType string `yaml:"device_type"`
}

// DeviceConfig describes one breezer unit to synchronize.
type DeviceConfig struct {
	// MAC is the appliance MAC address, 12 lowercase hex characters without separators.
	MAC string `yaml:"mac"`

	// ClientID is the 32-character device client identifier used as the
	// third topic segment.
	ClientID string `yaml:"client_id"`

	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for temperature telemetry.
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
// Environment variables follow the pattern: BREEZER_SECTION_KEY
// For example: BREEZER_MQTT_HOST, BREEZER_DATABASE_PATH
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
//
// The broker defaults match the ASP-100 vendor cloud: TLS on port 8883
// without certificate verification, topic namespace "rusclimate",
// device type "69".
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:        "192.168.1.100",
				Port:        8883,
				TLS:         true,
				TLSInsecure: true,
				ClientID:    "breezer-core",
			},
			Auth: MQTTAuthConfig{
				Username: "rusclimate",
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			Relay: RelayConfig{
				Buffer: 64,
			},
		},
		Topics: TopicsConfig{
			Namespace:  "rusclimate",
			DeviceType: "69",
		},
		Database: DatabaseConfig{
			Path:        "./data/breezer.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BREEZER_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("BREEZER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BREEZER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BREEZER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("BREEZER_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("BREEZER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Identifier length constants.
//
// The MAC and client id lengths match what the vendor firmware embeds in
// its topic names; anything else produces topics the device never uses.
const (
	macLength      = 12
	clientIDLength = 32
)

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Relay.Buffer < 1 {
		errs = append(errs, "mqtt.relay.buffer must be at least 1")
	}

	// Topic namespace validation
	if c.Topics.Namespace == "" {
		errs = append(errs, "topics.namespace is required")
	}
	if c.Topics.DeviceType == "" {
		errs = append(errs, "topics.device_type is required")
	}

	// Device validation
	if len(c.Devices) == 0 {
		errs = append(errs, "at least one device is required")
	}
	for i, dev := range c.Devices {
		if len(dev.MAC) != macLength || !isHex(dev.MAC) {
			errs = append(errs, fmt.Sprintf("devices[%d].mac must be %d hex characters", i, macLength))
		}
		if len(dev.ClientID) != clientIDLength {
			errs = append(errs, fmt.Sprintf("devices[%d].client_id must be %d characters", i, clientIDLength))
		}
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// isHex reports whether s consists only of lowercase hexadecimal characters.
func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
