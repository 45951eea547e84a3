// Package config loads process configuration from the environment once
// at startup. The resulting struct is immutable for the process
// lifetime and passed explicitly to the components that need it.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable of the service.
type Config struct {
	Addr     string `env:"KEYWARD_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"KEYWARD_GRPC_ADDR"`

	Secret string `env:"KEYWARD_SECRET"`
	Issuer string `env:"KEYWARD_ISSUER" envDefault:"keyward"`

	AccessTTL  time.Duration `env:"KEYWARD_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"KEYWARD_REFRESH_TTL" envDefault:"720h"`

	PGDSN     string `env:"KEYWARD_PG_DSN"`
	RedisAddr string `env:"KEYWARD_REDIS_ADDR"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Secret == "" {
		return errors.New("KEYWARD_SECRET is required")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.RefreshTTL <= c.AccessTTL {
		return errors.New("refresh TTL must exceed access TTL")
	}
	return nil
}
