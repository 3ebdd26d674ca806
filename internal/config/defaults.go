package config

import "time"

// Default values for the settings this package owns. These are "layer 0" of
// the override chain: config file values win over these, CLI flags win over
// the config file.
const (
	defaultLogLevel    = "info"
	defaultConnectTime = "10s"
	defaultDataTimeout = "60s"

	defaultConnectTimeoutDuration = 10 * time.Second
	defaultDataTimeoutDuration    = 60 * time.Second
)

// DefaultConfig returns a Config populated with every default, used both as
// the starting point for TOML decoding (unset keys keep their default) and
// as the whole result when no config file exists yet.
func DefaultConfig() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Logging: LoggingConfig{LogLevel: defaultLogLevel},
		Network: NetworkConfig{ConnectTimeout: defaultConnectTime, DataTimeout: defaultDataTimeout},
	}
}
