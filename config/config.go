// Package config loads service configuration from the environment,
// with optional .env file support for local development.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration. GeminiAPIKey is required; the
// OpenAI and Anthropic keys are only needed when a run selects one of
// those reasoning models.
type Config struct {
	GeminiAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	QueryModel      string
	ReflectionModel string
	AnswerModel     string

	Port              string
	InitialQueryCount int
	MaxResearchLoops  int
	NodeTimeout       time.Duration
	MaxSteps          int
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in when present; real environment
// variables win.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		QueryModel:      getEnv("QUERY_GENERATOR_MODEL", "gemini-2.0-flash"),
		ReflectionModel: getEnv("REFLECTION_MODEL", "gemini-2.5-flash"),
		AnswerModel:     getEnv("ANSWER_MODEL", "gemini-2.5-pro"),

		Port:              getEnv("PORT", "8080"),
		InitialQueryCount: getEnvAsInt("INITIAL_SEARCH_QUERY_COUNT", 3),
		MaxResearchLoops:  getEnvAsInt("MAX_RESEARCH_LOOPS", 2),
		NodeTimeout:       time.Duration(getEnvAsInt("NODE_TIMEOUT_SECONDS", 120)) * time.Second,
		MaxSteps:          getEnvAsInt("MAX_STEPS", 50),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
