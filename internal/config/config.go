// Package config provides configuration loading from environment
// variables.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Config holds all pipeline configuration.
type Config struct {
	// Engine settings
	InitTimeout    time.Duration `env:"VOICE_INIT_TIMEOUT, default=15s" validate:"gt=0"`
	RequestTimeout time.Duration `env:"VOICE_REQUEST_TIMEOUT, default=30s" validate:"gt=0"`

	// Default sample rate for inputs that do not carry one.
	SampleRate float64 `env:"VOICE_SAMPLE_RATE, default=44100" validate:"gt=0"`

	// Logging settings
	LogFormat string `env:"VOICE_LOG_FORMAT, default=text" validate:"oneof=text json"`
	LogLevel  string `env:"VOICE_LOG_LEVEL, default=info" validate:"oneof=debug info warn error"`
}

// Load reads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json" it outputs JSON logs suitable for
// production; otherwise human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
