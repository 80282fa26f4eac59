// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

type Config struct {
	Port             string
	LogLevel         string
	FrontendDistPath string
	CORSOrigins      []string

	DBDriver    string
	DBPath      string
	DatabaseURL string

	ScryfallBaseURL string

	LLMProvider       string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterModel   string
	AppURL            string
	GoogleAPIKey      string
	GeminiModel       string

	RateLimitPerMinute int
	// CacheRetention bounds how long unrefreshed card cache rows are kept
	CacheRetention time.Duration
}

// Load reads the environment. A missing .env file is not an error; values
// already in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		FrontendDistPath:  os.Getenv("FRONTEND_DIST_PATH"),
		CORSOrigins:       []string{"http://localhost:5173", "http://localhost:3000"},
		DBDriver:          getEnv("DB_DRIVER", "sqlite"),
		DBPath:            getEnv("DB_PATH", "./magic_proxy.db"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		ScryfallBaseURL:   os.Getenv("SCRYFALL_BASE_URL"),
		LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenRouter)),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: os.Getenv("OPENROUTER_BASE_URL"),
		OpenRouterModel:   os.Getenv("OPENROUTER_MODEL"),
		AppURL:            os.Getenv("APP_URL"),
		GoogleAPIKey:      os.Getenv("GOOGLE_API_KEY"),
		GeminiModel:       os.Getenv("GEMINI_MODEL"),
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}

	if cfg.GoogleAPIKey == "" {
		if keyPath := os.Getenv("GOOGLE_API_KEY_FILE"); keyPath != "" {
			data, err := os.ReadFile(keyPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read GOOGLE_API_KEY_FILE: %w", err)
			}
			cfg.GoogleAPIKey = strings.TrimSpace(string(data))
		}
	}

	cfg.RateLimitPerMinute = 30
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE %q", v)
		}
		cfg.RateLimitPerMinute = n
	}

	cfg.CacheRetention = 30 * 24 * time.Hour
	if v := os.Getenv("CACHE_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid CACHE_RETENTION %q", v)
		}
		cfg.CacheRetention = d
	}

	switch cfg.LLMProvider {
	case ProviderOpenRouter, ProviderGemini:
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
