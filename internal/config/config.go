// Package config loads runtime settings from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full runtime configuration.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL    string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`

	// DirectoryURL points at the user directory used for notification
	// enrichment.
	DirectoryURL     string        `envconfig:"DIRECTORY_URL" required:"true"`
	DirectoryTimeout time.Duration `envconfig:"DIRECTORY_TIMEOUT" default:"2s"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`

	BroadcastWorkers     int           `envconfig:"BROADCAST_WORKERS" default:"4"`
	BroadcastQueueSize   int           `envconfig:"BROADCAST_QUEUE_SIZE" default:"256"`
	BroadcastTaskTimeout time.Duration `envconfig:"BROADCAST_TASK_TIMEOUT" default:"3s"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
