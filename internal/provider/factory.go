package provider

import (
	"context"
	"fmt"
	"os"
	"strconv"
)

// Generation defaults. Answers are spoken aloud, so they stay short and
// fairly deterministic.
const (
	defaultMaxTokens   = 300
	defaultTemperature = 0.4
)

// NewFromEnv constructs an AnswerGenerator by reading provider configuration
// from environment variables. AI_PROVIDER selects the backend; each provider
// uses its own native credential env vars.
//
// Environment variables:
//
//	AI_PROVIDER          = gemini | openai | anthropic | ollama (default: gemini)
//
//	Gemini:    GEMINI_API_KEY, GEMINI_MODEL (default: gemini-2.0-flash)
//	OpenAI:    OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o-mini)
//	Anthropic: ANTHROPIC_API_KEY, ANTHROPIC_MODEL (default: claude-sonnet-4-20250514)
//	Ollama:    OLLAMA_HOST (default: http://localhost:11434), OLLAMA_MODEL (default: llama3)
//
//	Shared:    ANSWER_MAX_TOKENS (default: 300), ANSWER_TEMPERATURE (default: 0.4)
func NewFromEnv(ctx context.Context) (AnswerGenerator, error) {
	cfg := &Config{
		Backend: Backend(getEnvOrDefault("AI_PROVIDER", string(BackendGemini))),
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		OpenAI: OpenAIConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Anthropic: AnthropicConfig{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  getEnvOrDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		},
		Ollama: OllamaConfig{
			Host:  getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
			Model: getEnvOrDefault("OLLAMA_MODEL", "llama3"),
		},
		MaxTokens:   getEnvInt("ANSWER_MAX_TOKENS", defaultMaxTokens),
		Temperature: getEnvFloat32("ANSWER_TEMPERATURE", defaultTemperature),
	}
	return New(ctx, cfg)
}

// New constructs an AnswerGenerator from an explicit Config, delegating to
// the backend factory. It validates the config first so callers get a clear
// error at startup rather than on the first request.
func New(ctx context.Context, cfg *Config) (AnswerGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendGemini:
		return newGemini(ctx, cfg)
	case BackendOpenAI:
		return newOpenAI(ctx, cfg)
	case BackendAnthropic:
		return newAnthropic(cfg), nil
	case BackendOllama:
		return newOllama(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q (valid values: gemini, openai, anthropic, ollama)", cfg.Backend)
	}
}

// Validate checks that the selected backend has the configuration it needs.
func (c *Config) Validate() error {
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = defaultTemperature
	}
	switch c.Backend {
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("provider: GEMINI_API_KEY is required for gemini backend")
		}
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("provider: OPENAI_API_KEY is required for openai backend")
		}
	case BackendAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("provider: ANTHROPIC_API_KEY is required for anthropic backend")
		}
	case BackendOllama:
		if c.Ollama.Model == "" {
			return fmt.Errorf("provider: OLLAMA_MODEL is required for ollama backend")
		}
	case "":
		return fmt.Errorf("provider: backend is required")
	}
	return nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
