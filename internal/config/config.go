package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all runtime settings, loaded from the environment.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9091"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// DatabaseURL is optional. Without it scores and challenges are not
	// persisted and player history validation is skipped.
	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	SubmitPerMinute int `env:"SUBMIT_PER_MINUTE" envDefault:"10"`
	SubmitPerDay    int `env:"SUBMIT_PER_DAY" envDefault:"200"`
}

// Load reads a local .env file if present, then parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using environment")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.RedisAddr == "" {
		return errors.New("REDIS_ADDR must be set")
	}
	if c.SubmitPerMinute <= 0 || c.SubmitPerDay <= 0 {
		return errors.New("submission limits must be positive")
	}
	if c.SubmitPerDay < c.SubmitPerMinute {
		return errors.New("SUBMIT_PER_DAY must be at least SUBMIT_PER_MINUTE")
	}
	return nil
}
