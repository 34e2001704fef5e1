package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDerived fills defaults that depend on other settings.
func (c *Config) applyDerived() {
	if c.Watch.ProcessedDir == "" {
		c.Watch.ProcessedDir = filepath.Join(c.Watch.Dir, "processed")
	}
	if c.Watch.FailedDir == "" {
		c.Watch.FailedDir = filepath.Join(c.Watch.Dir, "failed")
	}
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		value := os.Getenv(envName)

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Destination validation: either a connections file or a fallback URL.
	if c.Database.ConnectionsFile == "" && c.Database.URL == "" {
		errs = append(errs, "either CONNECTIONS_FILE or DATABASE_URL is required")
	}
	if c.Database.ConnectAttempts <= 0 {
		errs = append(errs, "DB_CONNECT_ATTEMPTS must be positive")
	}
	if c.Database.ConnectDelay < 0 {
		errs = append(errs, "DB_CONNECT_DELAY must be non-negative")
	}

	// Watcher validation
	if c.Watch.Dir == "" {
		errs = append(errs, "WATCH_DIR is required")
	}
	if c.Watch.QuietPeriod <= 0 {
		errs = append(errs, "WATCH_QUIET_PERIOD must be positive")
	}

	// Stability probe validation
	if c.Sniff.LockPoll <= 0 {
		errs = append(errs, "SNIFF_LOCK_POLL must be positive")
	}
	if c.Sniff.LockMaxWait <= 0 {
		errs = append(errs, "SNIFF_LOCK_MAX_WAIT must be positive")
	}
	if c.Sniff.Settle < 0 {
		errs = append(errs, "SNIFF_SETTLE must be non-negative")
	}

	// Server validation
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("HTTP_PORT (%d) must be 1-65535", c.Server.Port))
		}
		if c.Server.ShutdownTimeout <= 0 {
			errs = append(errs, "HTTP_SHUTDOWN_TIMEOUT must be positive")
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Watch: {Dir: %q, QuietPeriod: %s}, ", c.Watch.Dir, c.Watch.QuietPeriod))
	b.WriteString(fmt.Sprintf("Database: {ConnectionsFile: %q, URL: [MASKED], ConnectAttempts: %d}, ",
		c.Database.ConnectionsFile, c.Database.ConnectAttempts))
	b.WriteString(fmt.Sprintf("Registry: {SchemaFile: %q}, ", c.Registry.SchemaFile))
	b.WriteString(fmt.Sprintf("Server: {Enabled: %v, Host: %q, Port: %d}, ",
		c.Server.Enabled, c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q, Dir: %q}",
		c.Logging.Level, c.Logging.Format, c.Logging.Dir))
	b.WriteString("}")
	return b.String()
}
