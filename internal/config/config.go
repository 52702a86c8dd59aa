package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/duckhunt.db"`
	DataDir  string     `env:"DATA_DIR" envDefault:"data/games"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// Bcrypt hash of the admin API key; admin routes reject everything while
	// it is unset.
	AdminKeyHash string `env:"ADMIN_KEY_HASH"`

	// Base URL embedded in the team/level links written at game creation.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`

	LLMAPIKey        string        `env:"LLM_API_KEY"`
	LLMBaseURL       string        `env:"LLM_BASE_URL" envDefault:"https://api.anthropic.com/v1/messages"`
	LLMBasicModel    string        `env:"LLM_BASIC_MODEL" envDefault:"claude-3-haiku-20240307"`
	LLMAdvancedModel string        `env:"LLM_ADVANCED_MODEL" envDefault:"claude-3-5-sonnet-20240620"`
	LLMAttempts      int           `env:"LLM_ATTEMPTS" envDefault:"3"`
	LLMBackoff       time.Duration `env:"LLM_BACKOFF" envDefault:"2s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
