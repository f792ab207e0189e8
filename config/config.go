package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server configuration, loaded from the environment.
type Config struct {
	Port            string        `env:"PORT" envDefault:"5000"`
	DBPath          string        `env:"DB_PATH" envDefault:"chat.db"`
	HistoryLimit    int           `env:"HISTORY_LIMIT" envDefault:"100"`
	AllowOrigins    string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
