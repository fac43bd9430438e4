package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	// Narrative generator: any OpenAI-compatible chat endpoint.
	NarratorAPIKey  string `env:"NARRATOR_API_KEY,required,notEmpty"`
	NarratorBaseURL string `env:"NARRATOR_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	NarratorModel   string `env:"NARRATOR_MODEL" envDefault:"anthropic/claude-sonnet-4"`

	// Rules adjudicator.
	GeminiAPIKey string `env:"GEMINI_API_KEY,required,notEmpty"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	// Speech. An empty key falls back to application default credentials.
	TTSAPIKey  string `env:"GOOGLE_TTS_API_KEY"`
	TTSEnabled bool   `env:"TTS_ENABLED" envDefault:"false"`

	SaveDir  string `env:"SAVE_DIR" envDefault:"saves"`
	AudioDir string `env:"AUDIO_CACHE_DIR" envDefault:"audio_cache"`

	RequestTimeout time.Duration `env:"GENERATOR_TIMEOUT" envDefault:"60s"`
	MaxRetries     int           `env:"GENERATOR_MAX_RETRIES" envDefault:"2"`
	RateLimit      float64       `env:"GENERATOR_RATE_LIMIT" envDefault:"2"`
	RateBurst      int           `env:"GENERATOR_RATE_BURST" envDefault:"4"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogEncoding string `env:"LOG_ENCODING" envDefault:"json"`
	LogFile     string `env:"LOG_FILE"`

	HTTPAddr        string  `env:"HTTP_ADDR" envDefault:":8080"`
	ClientRateLimit float64 `env:"HTTP_CLIENT_RATE_LIMIT" envDefault:"5"`
	ClientRateBurst int     `env:"HTTP_CLIENT_RATE_BURST" envDefault:"10"`
	TrustProxy      bool    `env:"HTTP_TRUST_PROXY" envDefault:"false"`
}

// LoadConfig reads .env, when present, and then the environment. Variables
// already set in the environment win over .env.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("GENERATOR_MAX_RETRIES must not be negative, got %d", cfg.MaxRetries)
	}
	return &cfg, nil
}
