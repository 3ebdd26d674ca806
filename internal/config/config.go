// Package config implements TOML-backed application settings: the data
// directory, default log level, and HTTP timeouts. Sync profiles are NOT
// part of this package — they are rows in the baseline store (internal/store),
// since they are mutable application state with CRUD operations rather than
// static configuration.
package config

import "time"

// Config is the top-level application settings structure, loaded from a
// single TOML file.
type Config struct {
	DataDir string        `toml:"data_dir"`
	Logging LoggingConfig `toml:"logging"`
	Network NetworkConfig `toml:"network"`
}

// LoggingConfig controls the default slog level before CLI flags override it.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// NetworkConfig holds the HTTP timeout settings. They are parsed and
// validated, but neither the Cloud provider nor the OAuth token refresh
// reads them: those requests are bounded only by their context.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout"`
}

// ConnectTimeoutDuration parses ConnectTimeout, falling back to the default
// on a malformed value (Validate should have already rejected that case).
func (n NetworkConfig) ConnectTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(n.ConnectTimeout)
	if err != nil {
		return defaultConnectTimeoutDuration
	}

	return d
}

// DataTimeoutDuration parses DataTimeout the same way.
func (n NetworkConfig) DataTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(n.DataTimeout)
	if err != nil {
		return defaultDataTimeoutDuration
	}

	return d
}
