// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"io"

	"github.com/caarlos0/env/v11"

	"github.com/hupe1980/reactivegraph/logging"
)

// Config holds the environment-driven runtime settings.
type Config struct {
	LogLevel  string `env:"REACTIVEGRAPH_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"REACTIVEGRAPH_LOG_FORMAT" envDefault:"json"`
	// MaxPropagationDepth bounds nested notifications of one property cell.
	// A negative value disables the limit.
	MaxPropagationDepth int `env:"REACTIVEGRAPH_MAX_PROPAGATION_DEPTH" envDefault:"256"`
	// Shards is the shard count of every registry map.
	Shards int `env:"REACTIVEGRAPH_SHARDS" envDefault:"32"`
	// Metrics enables the Prometheus collectors.
	Metrics bool `env:"REACTIVEGRAPH_METRICS" envDefault:"false"`
}

// FromEnv loads the configuration from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{LogLevel: "info", LogFormat: "json", MaxPropagationDepth: 256, Shards: 32}
}

// Validate checks value ranges and names.
func (c Config) Validate() error {
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text", "console":
	default:
		return fmt.Errorf("invalid log format %q: expected json, text or console", c.LogFormat)
	}
	if c.MaxPropagationDepth == 0 {
		return fmt.Errorf("invalid max propagation depth 0: use a negative value to disable the limit")
	}
	if c.Shards < 1 {
		return fmt.Errorf("invalid shard count %d", c.Shards)
	}
	return nil
}

// Logger builds the logger described by the configuration, writing to out.
func (c Config) Logger(out io.Writer) logging.Logger {
	level, _ := logging.ParseLevel(c.LogLevel)
	return logging.New(&logging.LoggerConfig{
		Level:       level,
		Format:      c.LogFormat,
		Output:      out,
		Component:   "reactivegraph",
		CustomAttrs: map[string]any{},
	})
}
