// Package config loads server settings from HOMEROOM_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port          string        `env:"PORT"           envDefault:"8080"`
	DBPath        string        `env:"DB_PATH"        envDefault:"homeroom.db"`
	BaseURL       string        `env:"BASE_URL"`
	LogLevel      string        `env:"LOG_LEVEL"      envDefault:"info"`
	LogFormat     string        `env:"LOG_FORMAT"     envDefault:"text"`
	PostmarkToken string        `env:"POSTMARK_TOKEN"`
	FromEmail     string        `env:"FROM_EMAIL"     envDefault:"noreply@homeroom.local"`
	SessionTTL    time.Duration `env:"SESSION_TTL"    envDefault:"720h"`
	SecureCookies bool          `env:"SECURE_COOKIES" envDefault:"false"`
}

// Load parses the environment. BaseURL defaults to localhost on Port.
func Load() (Config, error) {
	return parse(env.Options{Prefix: "HOMEROOM_"})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%s", cfg.Port)
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("HOMEROOM_SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	return cfg, nil
}
