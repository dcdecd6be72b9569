package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int    `env:"PORT" envDefault:"8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./taskforge.db"`
	JWTSecret    string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	BcryptCost   int    `env:"BCRYPT_COST" envDefault:"10"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigin   string `env:"CORS_ORIGIN" envDefault:"http://localhost:3000"`

	// Transactional email. An empty API key disables real delivery and
	// falls back to log-only sending.
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	SenderEmail    string `env:"SENDER_EMAIL" envDefault:"no-reply@taskforge.local"`
	SenderName     string `env:"SENDER_NAME" envDefault:"Task App"`

	// Cron spec for sweeping expired sessions out of the token table.
	SessionSweepCron string `env:"SESSION_SWEEP_CRON" envDefault:"@hourly"`
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
