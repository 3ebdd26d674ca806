package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/foldkeep/foldsync/internal/apperr"
)

// Load reads and parses the TOML config file at path, starting from
// DefaultConfig() so any key the file omits keeps its default, then
// validates the result.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("loading config file", "path", path)

	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config file %s: %w", apperr.ErrInvalidConfig, path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault reads path if it exists, otherwise returns DefaultConfig()
// unmodified — the zero-config first-run experience.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", "path", path)

		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// Validate rejects a config whose values could never produce correct
// behavior: an unparseable log level or HTTP timeout, or an empty data
// directory (home directory lookup failed and no override was given).
func Validate(cfg *Config) error {
	switch cfg.Logging.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.log_level %q is not one of debug/info/warn/error", apperr.ErrInvalidConfig, cfg.Logging.LogLevel)
	}

	if _, err := time.ParseDuration(cfg.Network.ConnectTimeout); err != nil {
		return fmt.Errorf("%w: network.connect_timeout %q: %w", apperr.ErrInvalidConfig, cfg.Network.ConnectTimeout, err)
	}

	if _, err := time.ParseDuration(cfg.Network.DataTimeout); err != nil {
		return fmt.Errorf("%w: network.data_timeout %q: %w", apperr.ErrInvalidConfig, cfg.Network.DataTimeout, err)
	}

	if cfg.DataDir == "" {
		return fmt.Errorf("%w: data_dir could not be resolved and no override was set", apperr.ErrInvalidConfig)
	}

	return nil
}
