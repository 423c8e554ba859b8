// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the server settings.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// DatabaseURL selects the PostgreSQL template store. Empty keeps
	// templates in memory.
	DatabaseURL string `env:"DATABASE_URL"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`
	SeedCatalog bool   `env:"SEED_CATALOG" envDefault:"true"`

	MaxAttemptsPerSolution int           `env:"MAX_ATTEMPTS_PER_SOLUTION" envDefault:"50000"`
	WallClockLimit         time.Duration `env:"WALL_CLOCK_LIMIT" envDefault:"60s"`
	MaxSolutions           int           `env:"MAX_SOLUTIONS" envDefault:"50"`
	RequestTimeout         time.Duration `env:"REQUEST_TIMEOUT" envDefault:"75s"`
	TemplateCacheTTL       time.Duration `env:"TEMPLATE_CACHE_TTL" envDefault:"0s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the given .env files (".env" when none are named) into the
// environment, then parses and validates Config. Missing files are skipped;
// variables already set in the environment win.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the limits are usable.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.MaxAttemptsPerSolution <= 0 {
		return fmt.Errorf("MAX_ATTEMPTS_PER_SOLUTION must be positive, got %d", c.MaxAttemptsPerSolution)
	}
	if c.WallClockLimit <= 0 {
		return fmt.Errorf("WALL_CLOCK_LIMIT must be positive, got %s", c.WallClockLimit)
	}
	if c.MaxSolutions <= 0 {
		return fmt.Errorf("MAX_SOLUTIONS must be positive, got %d", c.MaxSolutions)
	}
	if c.RequestTimeout < c.WallClockLimit {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must not be shorter than WALL_CLOCK_LIMIT (%s)", c.RequestTimeout, c.WallClockLimit)
	}
	if c.TemplateCacheTTL < 0 {
		return fmt.Errorf("TEMPLATE_CACHE_TTL must not be negative, got %s", c.TemplateCacheTTL)
	}
	return nil
}
