// Package config loads the server configuration from a TOML file,
// applying defaults for anything not set.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	SMTP      SMTPConfig      `toml:"smtp"`
	Scheduler SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Port int `toml:"port"`
}

type DatabaseConfig struct {
	// Path to the SQLite database file. ":memory:" for an in-memory
	// database.
	Path string `toml:"path"`
}

type SMTPConfig struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	From     string `toml:"from"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	UseTLS   bool   `toml:"use_tls"`
}

type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"`
}

// IntervalDuration parses the configured interval, falling back to the
// default daily cadence on empty or invalid values.
func (s SchedulerConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(s.Interval)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "leave.db"},
		SMTP: SMTPConfig{
			Enabled: false,
			Port:    587,
			From:    "hr@example.com",
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Interval: "24h",
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}
