package config

import (
	"log/slog"
	"os"

	"github.com/farmhand/groundskeeper/pkg/consts"
	"go.uber.org/fx"
)

var Module = fx.Module("config", fx.Provide(
	// Loads the configuration from $GROUNDSKEEPER_CONFIG or groundskeeper.yaml.
	// A missing file yields the defaults so that commands can be driven by
	// flags and environment variables alone.
	func() (*Config, error) {
		path := os.Getenv(consts.EnvConfig)
		if path == "" {
			path = consts.DefaultConfigFile
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			return Default(), nil
		}

		return LoadConfigFile(path)
	},
	func(lc fx.Lifecycle, c *Config) (*slog.Logger, error) {
		logger, closer, err := NewLogger(c.Logging)
		if err != nil {
			return nil, err
		}

		slog.SetDefault(logger)
		lc.Append(fx.StopHook(closer))
		return logger, nil
	},
))
