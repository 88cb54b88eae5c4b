package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv   string
	LogLevel zerolog.Level

	Frame   FrameConfig
	Metrics MetricsConfig
	Journal JournalConfig
}

// FrameConfig drives the host frame loop.
type FrameConfig struct {
	Interval time.Duration
	Limit    int // 0 runs until shutdown
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string // empty disables the endpoint
}

// JournalConfig controls the Postgres fault journal.
type JournalConfig struct {
	DatabaseURL string // empty disables the journal
	QueueSize   int
}

// bindings maps viper keys to environment variables.
var bindings = map[string]string{
	"app.env":          "APP_ENV",
	"log.level":        "LOG_LEVEL",
	"frame.interval":   "FRAME_INTERVAL",
	"frame.limit":      "FRAME_LIMIT",
	"metrics.addr":     "METRICS_ADDR",
	"database.url":     "DATABASE_URL",
	"fault.queue_size": "FAULT_QUEUE_SIZE",
}

// Load loads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	// A missing .env is fine, the OS environment is used as is.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	v.SetDefault("app.env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("frame.interval", "16ms")
	v.SetDefault("frame.limit", 0)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("database.url", "")
	v.SetDefault("fault.queue_size", 256)

	return fromViper(v)
}

// fromViper builds and validates a Config from already-bound keys.
func fromViper(v *viper.Viper) (*Config, error) {
	level, err := zerolog.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg := Config{
		AppEnv:   v.GetString("app.env"),
		LogLevel: level,
		Frame: FrameConfig{
			Interval: v.GetDuration("frame.interval"),
			Limit:    v.GetInt("frame.limit"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
		Journal: JournalConfig{
			DatabaseURL: v.GetString("database.url"),
			QueueSize:   v.GetInt("fault.queue_size"),
		},
	}

	if cfg.Frame.Interval <= 0 {
		return nil, fmt.Errorf("FRAME_INTERVAL must be a positive duration, got %q", v.GetString("frame.interval"))
	}
	if cfg.Frame.Limit < 0 {
		return nil, errors.New("FRAME_LIMIT cannot be negative")
	}
	if cfg.Journal.QueueSize <= 0 {
		return nil, fmt.Errorf("FAULT_QUEUE_SIZE must be positive, got %d", cfg.Journal.QueueSize)
	}

	return &cfg, nil
}

// IsDev reports whether human-readable logging should be used.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}
