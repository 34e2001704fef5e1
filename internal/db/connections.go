// Package db manages destination connections: the configured connection
// list and per-load connection establishment with bounded retry.
//
// A connection is opened fresh for each load attempt and closed on every
// exit path. Nothing here pools connections across files.
package db

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// ConnectionConfig is one entry of the ordered destination list.
type ConnectionConfig struct {
	Name     string `json:"name"`
	Server   string `json:"server"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	Port     int    `json:"port"`
	Enabled  bool   `json:"enabled"`
}

// URL renders the config as a PostgreSQL connection string.
func (c ConnectionConfig) URL() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Server, port),
		Path:   "/" + c.Database,
	}
	return u.String()
}

// FromURL builds a single enabled connection entry from a PostgreSQL
// connection string. Used when no connections file is configured.
func FromURL(name, raw string) (ConnectionConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ConnectionConfig{}, fmt.Errorf("parse database URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return ConnectionConfig{}, fmt.Errorf("unsupported database URL scheme %q", u.Scheme)
	}
	cfg := ConnectionConfig{
		Name:     name,
		Server:   u.Hostname(),
		Database: strings.TrimPrefix(u.Path, "/"),
		Enabled:  true,
	}
	if u.User != nil {
		cfg.Username = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return ConnectionConfig{}, fmt.Errorf("invalid port in database URL: %w", err)
		}
		cfg.Port = port
	}
	return cfg, nil
}

// LoadConnections reads the destination connection list from a JSON file.
func LoadConnections(path string) ([]ConnectionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read connections file: %w", err)
	}
	var conns []ConnectionConfig
	if err := json.Unmarshal(data, &conns); err != nil {
		return nil, fmt.Errorf("parse connections file %s: %w", path, err)
	}
	if len(conns) == 0 {
		return nil, fmt.Errorf("connections file %s declares no connections", path)
	}
	return conns, nil
}

// FindEnabled returns the first enabled connection with the given name.
// A missing or disabled connection is a configuration error, not a
// retryable condition.
func FindEnabled(conns []ConnectionConfig, name string) (ConnectionConfig, error) {
	for _, c := range conns {
		if c.Name == name && c.Enabled {
			return c, nil
		}
	}
	return ConnectionConfig{}, fmt.Errorf("no enabled destination connection named %q", name)
}
