// Package config loads and validates environment-driven configuration.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`

	DiscordClientID     string `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURI  string `env:"DISCORD_REDIRECT_URI"`
	DiscordBotToken     string `env:"DISCORD_BOT_TOKEN"`

	TwitchClientID     string `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret string `env:"TWITCH_CLIENT_SECRET"`
	TwitchRedirectURI  string `env:"TWITCH_REDIRECT_URI"`

	SessionSecret string `env:"SESSION_SECRET"`
	// TokenEncryptionSecret feeds the credential vault. A 64-character hex
	// value is used as the raw AES-256 key; anything else is hashed first.
	TokenEncryptionSecret string `env:"TOKEN_ENCRYPTION_SECRET"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL":            cfg.DatabaseURL,
		"DISCORD_CLIENT_ID":       cfg.DiscordClientID,
		"DISCORD_CLIENT_SECRET":   cfg.DiscordClientSecret,
		"DISCORD_REDIRECT_URI":    cfg.DiscordRedirectURI,
		"DISCORD_BOT_TOKEN":       cfg.DiscordBotToken,
		"TWITCH_CLIENT_ID":        cfg.TwitchClientID,
		"TWITCH_CLIENT_SECRET":    cfg.TwitchClientSecret,
		"TWITCH_REDIRECT_URI":     cfg.TwitchRedirectURI,
		"SESSION_SECRET":          cfg.SessionSecret,
		"TOKEN_ENCRYPTION_SECRET": cfg.TokenEncryptionSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	return nil
}
