package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Lock Bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Agent     AgentConfig     `yaml:"agent"`
	Devices   []DeviceConfig  `yaml:"devices"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	HomeGraph HomeGraphConfig `yaml:"homegraph"`
	Actuator  ActuatorConfig  `yaml:"actuator"`
	Sensor    SensorConfig    `yaml:"sensor"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// AgentConfig identifies the account that owns the devices on the platform.
//
// The platform correlates SYNC responses and state reports by this ID. A
// single-account deployment uses one fixed value, but it is configuration,
// not a constant, so multi-account support stays possible.
type AgentConfig struct {
	UserID string `yaml:"user_id"`
}

// DeviceConfig declares one device in the static catalog.
// The catalog is enumerated verbatim in every SYNC response; it is not
// discovered or mutated at runtime.
type DeviceConfig struct {
	ID              string   `yaml:"id"`
	Type            string   `yaml:"type"`
	Traits          []string `yaml:"traits"`
	Name            string   `yaml:"name"`
	DefaultNames    []string `yaml:"default_names"`
	Nicknames       []string `yaml:"nicknames"`
	Manufacturer    string   `yaml:"manufacturer"`
	Model           string   `yaml:"model"`
	HWVersion       string   `yaml:"hw_version"`
	SWVersion       string   `yaml:"sw_version"`
	WillReportState bool     `yaml:"will_report_state"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
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

// WebSocketConfig contains state-stream WebSocket settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// HomeGraphConfig contains the platform's HomeGraph-style API settings.
// Report-state and request-sync calls are sent to BaseURL.
type HomeGraphConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	Timeout int    `yaml:"timeout"`
}

// ActuatorConfig contains the downstream lock vendor API settings.
//
// The vendor call is advisory: the store is authoritative for lock state,
// so actuator failures are logged and never surfaced to the platform.
type ActuatorConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	PropertyID string `yaml:"property_id"`
	UnitID     string `yaml:"unit_id"`
	LockID     string `yaml:"lock_id"`
	AuthToken  string `yaml:"auth_token"`
	Timeout    int    `yaml:"timeout"`
}

// SensorConfig contains the MQTT sensor feed settings.
// The feed carries out-of-band physical lock state into the store.
type SensorConfig struct {
	Enabled   bool                  `yaml:"enabled"`
	Broker    SensorBrokerConfig    `yaml:"broker"`
	Auth      SensorAuthConfig      `yaml:"auth"`
	QoS       int                   `yaml:"qos"`
	Reconnect SensorReconnectConfig `yaml:"reconnect"`
}

// SensorBrokerConfig contains MQTT broker connection details.
type SensorBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// SensorAuthConfig contains MQTT authentication credentials.
type SensorAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SensorReconnectConfig contains MQTT reconnection settings in seconds.
type SensorReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings for state telemetry.
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

// SecurityConfig contains security settings.
//
// The account-linking flow served by this bridge is a development stub: the
// token endpoint issues signed tokens without validating credentials. Do not
// treat it as an authentication boundary.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings for the token stub and the
// fulfillment auth middleware.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	// TokenTTL is the access token lifetime in seconds.
	TokenTTL int `yaml:"token_ttl"`
	// RequireAuth enables bearer token validation on the fulfillment endpoint.
	RequireAuth bool `yaml:"require_auth"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LOCKBRIDGE_SECTION_KEY
// For example: LOCKBRIDGE_DATABASE_PATH, LOCKBRIDGE_ACTUATOR_TOKEN
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

// secondsInDay is the default access token lifetime issued by the token stub.
const secondsInDay = 86400

// defaultConfig returns a Config with sensible defaults.
// The device catalog defaults to the single lock this deployment controls.
func defaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			UserID: "123",
		},
		Devices: []DeviceConfig{
			{
				ID:              "lock",
				Type:            "action.devices.types.LOCK",
				Traits:          []string{"action.devices.traits.LockUnlock"},
				Name:            "Door Lock",
				DefaultNames:    []string{"My Door Lock"},
				Nicknames:       []string{"Door Lock"},
				Manufacturer:    "Yale",
				Model:           "yale-lock",
				HWVersion:       "1.0",
				SWVersion:       "1.0.1",
				WillReportState: false,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/lockbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		HomeGraph: HomeGraphConfig{
			Enabled: true,
			BaseURL: "https://homegraph.googleapis.com/v1",
			Timeout: 10,
		},
		Actuator: ActuatorConfig{
			Enabled: false,
			BaseURL: "https://api.littlebirdliving.com",
			Timeout: 10,
		},
		Sensor: SensorConfig{
			Enabled: false,
			Broker: SensorBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "lockbridge",
			},
			QoS: 1,
			Reconnect: SensorReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				TokenTTL: secondsInDay,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LOCKBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Agent
	if v := os.Getenv("LOCKBRIDGE_AGENT_USER_ID"); v != "" {
		cfg.Agent.UserID = v
	}

	// Database
	if v := os.Getenv("LOCKBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("LOCKBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("LOCKBRIDGE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// HomeGraph
	if v := os.Getenv("LOCKBRIDGE_HOMEGRAPH_TOKEN"); v != "" {
		cfg.HomeGraph.Token = v
	}

	// Actuator — credentials and routing identifiers come from the vendor
	if v := os.Getenv("LOCKBRIDGE_ACTUATOR_TOKEN"); v != "" {
		cfg.Actuator.AuthToken = v
	}
	if v := os.Getenv("LOCKBRIDGE_ACTUATOR_PROPERTY_ID"); v != "" {
		cfg.Actuator.PropertyID = v
	}
	if v := os.Getenv("LOCKBRIDGE_ACTUATOR_UNIT_ID"); v != "" {
		cfg.Actuator.UnitID = v
	}
	if v := os.Getenv("LOCKBRIDGE_ACTUATOR_LOCK_ID"); v != "" {
		cfg.Actuator.LockID = v
	}

	// Sensor
	if v := os.Getenv("LOCKBRIDGE_SENSOR_HOST"); v != "" {
		cfg.Sensor.Broker.Host = v
	}
	if v := os.Getenv("LOCKBRIDGE_SENSOR_USERNAME"); v != "" {
		cfg.Sensor.Auth.Username = v
	}
	if v := os.Getenv("LOCKBRIDGE_SENSOR_PASSWORD"); v != "" {
		cfg.Sensor.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("LOCKBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security
	if v := os.Getenv("LOCKBRIDGE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Agent validation
	if c.Agent.UserID == "" {
		errs = append(errs, "agent.user_id is required")
	}

	// Catalog validation
	if len(c.Devices) == 0 {
		errs = append(errs, "at least one device must be declared")
	}
	seen := make(map[string]bool, len(c.Devices))
	for _, d := range c.Devices {
		if d.ID == "" {
			errs = append(errs, "devices[].id is required")
			continue
		}
		if seen[d.ID] {
			errs = append(errs, fmt.Sprintf("duplicate device id %q", d.ID))
		}
		seen[d.ID] = true
		if d.Type == "" {
			errs = append(errs, fmt.Sprintf("devices[%s].type is required", d.ID))
		}
		if len(d.Traits) == 0 {
			errs = append(errs, fmt.Sprintf("devices[%s].traits must not be empty", d.ID))
		}
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Actuator validation — routing identifiers are required when enabled
	if c.Actuator.Enabled {
		if c.Actuator.PropertyID == "" || c.Actuator.UnitID == "" || c.Actuator.LockID == "" {
			errs = append(errs, "actuator.property_id, actuator.unit_id and actuator.lock_id are required when actuator.enabled is true")
		}
	}

	// Sensor validation
	if c.Sensor.Enabled && (c.Sensor.QoS < 0 || c.Sensor.QoS > 2) {
		errs = append(errs, "sensor.qos must be 0, 1, or 2")
	}

	// Security validation — a secret is only required when the fulfillment
	// endpoint enforces auth
	if c.Security.JWT.RequireAuth && c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required when security.jwt.require_auth is true (set LOCKBRIDGE_JWT_SECRET)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}
