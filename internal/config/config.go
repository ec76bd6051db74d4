package config

import (
	"log/slog"
	"os"
	"time"
)

type Config struct {
	Port string
	Env  string

	Provider string
	APIKey   string
	Model    string

	JWTSecret        string
	TokenTTL         time.Duration
	RememberTokenTTL time.Duration

	UsersFile   string
	DatabaseDSN string

	RateWindow time.Duration
	RateLimit  int
}

// Load reads configuration from the environment once at startup. It is not
// re-read afterwards; there is no hot reload.
func Load() Config {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		Provider:         getEnv("AI_PROVIDER", "openai"),
		APIKey:           os.Getenv("AI_API_KEY"),
		JWTSecret:        getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		TokenTTL:         24 * time.Hour,
		RememberTokenTTL: 30 * 24 * time.Hour,
		UsersFile:        getEnv("USERS_FILE", "data/users.json"),
		DatabaseDSN:      os.Getenv("DATABASE_DSN"),
		RateWindow:       15 * time.Minute,
		RateLimit:        50,
	}
	cfg.Model = modelFor(cfg.Provider)

	if cfg.Env == "production" && cfg.JWTSecret == "dev-secret-change-in-production" {
		slog.Error("JWT_SECRET must be set in production environment")
		os.Exit(1)
	}

	return cfg
}

// IsProduction reports whether the server runs in the production environment.
// Outside production, password reset codes are echoed back for development.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// modelFor returns the model identifier for a provider, honoring per-provider
// environment overrides.
func modelFor(provider string) string {
	switch provider {
	case "openai":
		return getEnv("OPENAI_MODEL", "gpt-3.5-turbo")
	case "anthropic":
		return getEnv("ANTHROPIC_MODEL", "claude-3-haiku-20240307")
	case "gemini":
		return getEnv("GEMINI_MODEL", "gemini-pro")
	case "huggingface":
		return getEnv("HF_MODEL", "mistralai/Mixtral-8x7B-Instruct-v0.1")
	default:
		return ""
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
