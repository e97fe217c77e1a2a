// Package config loads process-wide configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Environment names the deployment mode. Guards treat anything that is not
// production as development-like.
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	Production  Environment = "production"
)

// DevelopmentLike reports whether embargo enforcement and similar
// production-only behavior should be bypassed.
func (e Environment) DevelopmentLike() bool {
	return e != Production
}

// Config is read once at startup and treated as read-only afterwards.
type Config struct {
	Env         Environment `env:"APP_ENV" envDefault:"development"`
	Port        int         `env:"PORT" envDefault:"8080"`
	DatabaseURL string      `env:"DATABASE_URL"`
	Version     string      `env:"VERSION" envDefault:"dev"`

	TokenSecret   string        `env:"TOKEN_SECRET"`
	TokenLifetime time.Duration `env:"TOKEN_LIFETIME" envDefault:"720h"`

	UseSSL      bool     `env:"USE_SSL"`
	AllowOrigin []string `env:"ALLOW_ORIGIN" envSeparator:","`

	GeoLookupURL       string `env:"GEO_LOOKUP_URL" envDefault:"http://api.ipaddress.com/iptocountry"`
	EmbargoedContinent string `env:"EMBARGOED_CONTINENT" envDefault:"EU"`
	EmbargoMessage     string `env:"EMBARGO_MESSAGE" envDefault:"Unfortunately EU members aren't allowed to use our app until we become GDPR compliant."`

	RateBurst    int   `env:"RATE_BURST" envDefault:"20"`
	RatePerSec   int   `env:"RATE_PER_SEC" envDefault:"10"`
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

// Load parses the environment and validates the fields the process cannot
// run without.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TokenSecret == "" {
		return Config{}, fmt.Errorf("TOKEN_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}
