// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// HTTP
	Port        string   `envconfig:"PORT" default:"8080"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`

	// DB
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      string `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"postgres"`
	DBPassword  string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName      string `envconfig:"DB_NAME" default:"eventcheckin"`
	DBSSLMode   string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"20"`

	// Auth
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Check-in tokens. Tokens older than TokenMaxAge are refused; 0 disables the check.
	TokenMaxAge    time.Duration `envconfig:"TOKEN_MAX_AGE" default:"720h"`
	TokenClockSkew time.Duration `envconfig:"TOKEN_CLOCK_SKEW" default:"5m"`

	// Messaging
	RabbitURL      string `envconfig:"RABBIT_URL"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"checkin.events"`
}

// Load reads an optional .env file, then the process environment.
func Load() (App, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return App{}, fmt.Errorf("load .env: %w", err)
	}
	var c App
	if err := envconfig.Process("", &c); err != nil {
		return App{}, err
	}
	if c.TokenMaxAge < 0 || c.TokenClockSkew < 0 {
		return App{}, errors.New("TOKEN_MAX_AGE and TOKEN_CLOCK_SKEW must not be negative")
	}
	return c, nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c App) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
