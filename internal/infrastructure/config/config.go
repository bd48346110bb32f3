package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for syncgate.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Security  SecurityConfig  `yaml:"security"`
	Docs      DocsConfig      `yaml:"docs"`
	Users     UsersConfig     `yaml:"users"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host     string              `yaml:"host"`
	Port     int                 `yaml:"port"`
	Timeouts ServerTimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig          `yaml:"cors"`
}

// ServerTimeoutConfig contains HTTP timeout settings in seconds.
type ServerTimeoutConfig struct {
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

// WebSocketConfig contains WebSocket session settings.
//
// PingInterval of zero disables keepalive pings entirely; a silent peer can
// then hold a session open indefinitely, matching the default behaviour.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	ReadBufferSize int `yaml:"read_buffer_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// SecurityConfig contains authentication settings.
//
// The token signing secret is deliberately absent: it is generated fresh at
// process start, so restarting the server revokes all outstanding tokens.
type SecurityConfig struct {
	TokenTTLMinutes int `yaml:"token_ttl_minutes"`
}

// DocsConfig contains the optional documentation index settings.
type DocsConfig struct {
	Path string `yaml:"path"`
}

// UsersConfig contains the SQLite user directory settings.
type UsersConfig struct {
	Path string `yaml:"path"`
}

// BridgeConfig contains the optional MQTT relay settings.
type BridgeConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	Group    string `yaml:"group"`
	QoS      int    `yaml:"qos"`
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
// Environment variables follow the pattern: SYNCGATE_SECTION_KEY
// For example: SYNCGATE_SERVER_PORT, SYNCGATE_USERS_PATH
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: ServerTimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 1 << 20,
			ReadBufferSize: 4096,
			PingInterval:   0, // keepalive off unless configured
			PongTimeout:    10,
		},
		Security: SecurityConfig{
			TokenTTLMinutes: 7 * 24 * 60,
		},
		Users: UsersConfig{
			Path: "syncgate.db",
		},
		Bridge: BridgeConfig{
			QoS: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SYNCGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SYNCGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SYNCGATE_TOKEN_TTL_MINUTES"); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil {
			cfg.Security.TokenTTLMinutes = ttl
		}
	}
	if v := os.Getenv("SYNCGATE_USERS_PATH"); v != "" {
		cfg.Users.Path = v
	}
	if v := os.Getenv("SYNCGATE_DOCS_PATH"); v != "" {
		cfg.Docs.Path = v
	}
	if v := os.Getenv("SYNCGATE_BRIDGE_BROKER"); v != "" {
		cfg.Bridge.Broker = v
	}
	if v := os.Getenv("SYNCGATE_BRIDGE_USERNAME"); v != "" {
		cfg.Bridge.Username = v
	}
	if v := os.Getenv("SYNCGATE_BRIDGE_PASSWORD"); v != "" {
		cfg.Bridge.Password = v
	}
	if v := os.Getenv("SYNCGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if c.Security.TokenTTLMinutes <= 0 {
		errs = append(errs, "security.token_ttl_minutes must be positive")
	}

	if c.WebSocket.MaxMessageSize <= 0 {
		errs = append(errs, "websocket.max_message_size must be positive")
	}

	if c.WebSocket.PingInterval > 0 && c.WebSocket.PongTimeout <= 0 {
		errs = append(errs, "websocket.pong_timeout must be positive when ping_interval is set")
	}

	if c.Bridge.Enabled {
		if c.Bridge.Broker == "" {
			errs = append(errs, "bridge.broker is required when bridge is enabled")
		}
		if c.Bridge.Topic == "" {
			errs = append(errs, "bridge.topic is required when bridge is enabled")
		}
		if c.Bridge.Group == "" {
			errs = append(errs, "bridge.group is required when bridge is enabled")
		}
		if c.Bridge.QoS < 0 || c.Bridge.QoS > 2 {
			errs = append(errs, "bridge.qos must be 0, 1, or 2")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// TokenTTL returns the configured token lifetime as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Security.TokenTTLMinutes) * time.Minute
}

// ReadTimeout returns the HTTP read timeout as a duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Read) * time.Second
}

// WriteTimeout returns the HTTP write timeout as a duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Write) * time.Second
}

// IdleTimeout returns the HTTP idle timeout as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Idle) * time.Second
}
