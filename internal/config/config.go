// Package config provides centralized configuration management for the
// application. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast
// on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Watch    WatchConfig
	Sniff    SniffConfig
	Database DatabaseConfig
	Registry RegistryConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// WatchConfig holds drop-directory settings.
type WatchConfig struct {
	// Dir is the watched drop directory (default: ./dropbox)
	Dir string `env:"WATCH_DIR" default:"./dropbox"`

	// ProcessedDir receives successfully loaded files.
	// Empty means <Dir>/processed.
	ProcessedDir string `env:"WATCH_PROCESSED_DIR"`

	// FailedDir receives files that failed at any stage.
	// Empty means <Dir>/failed.
	FailedDir string `env:"WATCH_FAILED_DIR"`

	// QuietPeriod is how long a file must go without write events
	// before it is treated as ready (default: 2s)
	QuietPeriod time.Duration `env:"WATCH_QUIET_PERIOD" default:"2s"`
}

// SniffConfig tunes the write-stability probe of the format detector.
type SniffConfig struct {
	// LockPoll is the interval between exclusive-open probes (default: 250ms)
	LockPoll time.Duration `env:"SNIFF_LOCK_POLL" default:"250ms"`

	// LockMaxWait bounds the total probe time (default: 15s)
	LockMaxWait time.Duration `env:"SNIFF_LOCK_MAX_WAIT" default:"15s"`

	// Settle is the pause after a successful probe (default: 500ms)
	Settle time.Duration `env:"SNIFF_SETTLE" default:"500ms"`
}

// DatabaseConfig holds destination connection settings.
type DatabaseConfig struct {
	// ConnectionsFile is the JSON list of destination connections.
	// When empty, a single connection named "primary" is built from
	// DATABASE_URL.
	ConnectionsFile string `env:"CONNECTIONS_FILE"`

	// URL is the fallback PostgreSQL connection string used when no
	// connections file is configured.
	URL string `env:"DATABASE_URL"`

	// ConnectAttempts bounds initial connection establishment (default: 3)
	ConnectAttempts int `env:"DB_CONNECT_ATTEMPTS" default:"3"`

	// ConnectDelay is the fixed delay between attempts (default: 2s)
	ConnectDelay time.Duration `env:"DB_CONNECT_DELAY" default:"2s"`
}

// RegistryConfig locates the schema registry.
type RegistryConfig struct {
	// SchemaFile is the JSON schema registry. Empty uses the built-in
	// default table schemas.
	SchemaFile string `env:"SCHEMA_FILE"`
}

// ServerConfig holds the optional synchronous upload endpoint settings.
type ServerConfig struct {
	// Enabled turns the HTTP upload endpoint on (default: false)
	Enabled bool `env:"HTTP_ENABLED" default:"false"`

	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"HTTP_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"HTTP_PORT" default:"8080"`

	// ShutdownTimeout is the maximum duration for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// Dir receives the dated log files; empty disables file logging.
	Dir string `env:"LOG_DIR" default:"./logs"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
