// Package provider selects and constructs the answer-generation backend at
// runtime. Generation is single-provider by design: the operator picks one
// backend (gemini, openai, anthropic, ollama) and every answer goes through
// it. There is no generation fallback chain; only the voice capabilities
// cascade across providers.
package provider

import "context"

// Backend enumerates the supported answer-generation providers.
type Backend string

const (
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAnthropic selects the Anthropic Messages API.
	BackendAnthropic Backend = "anthropic"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
)

// AnswerGenerator produces a completion for a system prompt and user
// question. Implementations must be safe for concurrent use.
type AnswerGenerator interface {
	Generate(ctx context.Context, system, question string) (string, error)
}

// GeminiConfig holds Gemini backend settings.
type GeminiConfig struct {
	// APIKey is the AI Studio API key.
	APIKey string
	// Model is the model name (e.g. "gemini-2.0-flash").
	Model string
}

// OpenAIConfig holds OpenAI backend settings.
type OpenAIConfig struct {
	// APIKey is the API key.
	APIKey string
	// Model is the model name (e.g. "gpt-4o-mini").
	Model string
}

// AnthropicConfig holds Anthropic backend settings.
type AnthropicConfig struct {
	// APIKey is the API key.
	APIKey string
	// Model is the model name (e.g. "claude-sonnet-4-20250514").
	Model string
	// BaseURL overrides the API endpoint. Empty means the public API.
	BaseURL string
}

// OllamaConfig holds Ollama backend settings.
type OllamaConfig struct {
	// Host is the Ollama server base URL (default: http://localhost:11434).
	Host string
	// Model is the model name (e.g. "llama3").
	Model string
}

// Config holds the resolved provider configuration. Only the section for the
// selected backend needs to be populated.
type Config struct {
	// Backend identifies which provider answers questions.
	Backend Backend

	// Gemini, OpenAI, Anthropic, and Ollama hold per-backend settings.
	Gemini    GeminiConfig
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Ollama    OllamaConfig

	// MaxTokens caps the tokens generated per answer. Answers are read aloud
	// to a live audience, so the default is small (300).
	MaxTokens int

	// Temperature controls response randomness (default: 0.4).
	Temperature float32
}
