// Package config provides YAML-based configuration for consultdeck.
// Configuration is loaded with a layered precedence: defaults, then the YAML
// file, then env vars. Environment variables always win, so existing
// deployments driven purely by env are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. CONSULTDECK_CONFIG environment variable
//  3. ~/.consultdeck/config.yaml
//  4. ./consultdeck.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure. Field names use yaml
// tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// AI configures the answer-generation provider.
	AI AIConfig `yaml:"ai"`

	// Embedding configures the embedding provider for retrieval.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Index configures the vector index backend.
	Index IndexConfig `yaml:"index"`

	// Chunking configures document splitting.
	Chunking ChunkingConfig `yaml:"chunking"`

	// Voice configures speech transcription, synthesis, and cloning.
	Voice VoiceConfig `yaml:"voice"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// History configures Q&A history persistence.
	History HistoryConfig `yaml:"history"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// AIConfig holds answer-generation provider settings.
type AIConfig struct {
	// Provider selects the backend: gemini, openai, anthropic, ollama.
	Provider string `yaml:"provider"`

	// MaxTokens caps the tokens generated per answer.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature controls response randomness.
	Temperature float32 `yaml:"temperature"`

	// Gemini holds Gemini-specific settings.
	Gemini GeminiConfig `yaml:"gemini"`

	// OpenAI holds OpenAI-specific settings.
	OpenAI OpenAIConfig `yaml:"openai"`

	// Anthropic holds Anthropic-specific settings.
	Anthropic AnthropicConfig `yaml:"anthropic"`

	// Ollama holds Ollama-specific settings.
	Ollama OllamaConfig `yaml:"ollama"`
}

// GeminiConfig holds Gemini provider settings.
type GeminiConfig struct {
	// APIKey is the AI Studio API key. Prefer env var GEMINI_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the Gemini model name.
	Model string `yaml:"model"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the OpenAI model name.
	Model string `yaml:"model"`
}

// AnthropicConfig holds Anthropic provider settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. Prefer env var ANTHROPIC_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the Anthropic model name.
	Model string `yaml:"model"`
}

// OllamaConfig holds Ollama provider settings.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string `yaml:"host"`
	// Model is the Ollama model name.
	Model string `yaml:"model"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (gemini, openai, ollama).
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	// Provider selects the index backend: qdrant or memory.
	Provider string `yaml:"provider"`
	// Qdrant holds Qdrant connection settings.
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds Qdrant connection settings. Collections are per-session
// and managed by the index itself.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// ChunkingConfig holds document splitting settings.
type ChunkingConfig struct {
	// Size is the maximum chunk length in characters.
	Size int `yaml:"size"`
	// Overlap is the overlap carried between chunks.
	Overlap int `yaml:"overlap"`
}

// VoiceConfig holds speech settings.
type VoiceConfig struct {
	// GoogleAPIKey enables Google Cloud STT and TTS.
	GoogleAPIKey string `yaml:"google_api_key"`
	// GoogleSTTLanguage is the Hindi recognition language code.
	GoogleSTTLanguage string `yaml:"google_stt_language"`
	// GoogleTTSVoice is the stock English synthesis voice.
	GoogleTTSVoice string `yaml:"google_tts_voice"`
	// WhisperModel is the Whisper transcription model.
	WhisperModel string `yaml:"whisper_model"`
	// TTSModel is the OpenAI synthesis model.
	TTSModel string `yaml:"tts_model"`
	// TTSVoice overrides the default OpenAI English voice.
	TTSVoice string `yaml:"tts_voice"`
	// CloneEndpoint is the voice-cloning sidecar base URL.
	CloneEndpoint string `yaml:"clone_endpoint"`
	// SamplesDir is where reference voice samples are stored.
	SamplesDir string `yaml:"samples_dir"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var
	// CONSULTDECK_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// HistoryConfig holds Q&A history settings.
type HistoryConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"AI_PROVIDER", func(c *Config) string { return c.AI.Provider }},
	{"ANSWER_MAX_TOKENS", func(c *Config) string { return intStr(c.AI.MaxTokens) }},
	{"ANSWER_TEMPERATURE", func(c *Config) string { return float32Str(c.AI.Temperature) }},
	{"GEMINI_API_KEY", func(c *Config) string { return c.AI.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.AI.Gemini.Model }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.AI.OpenAI.APIKey }},
	{"OPENAI_MODEL", func(c *Config) string { return c.AI.OpenAI.Model }},
	{"ANTHROPIC_API_KEY", func(c *Config) string { return c.AI.Anthropic.APIKey }},
	{"ANTHROPIC_MODEL", func(c *Config) string { return c.AI.Anthropic.Model }},
	{"OLLAMA_HOST", func(c *Config) string { return c.AI.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.AI.Ollama.Model }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"INDEX_PROVIDER", func(c *Config) string { return c.Index.Provider }},
	{"QDRANT_HOST", func(c *Config) string { return c.Index.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Index.Qdrant.Port) }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Index.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Index.Qdrant.TLS) }},
	{"CHUNK_SIZE", func(c *Config) string { return intStr(c.Chunking.Size) }},
	{"CHUNK_OVERLAP", func(c *Config) string { return intStr(c.Chunking.Overlap) }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.Voice.GoogleAPIKey }},
	{"GOOGLE_STT_LANGUAGE_CODE", func(c *Config) string { return c.Voice.GoogleSTTLanguage }},
	{"GOOGLE_TTS_VOICE_NAME", func(c *Config) string { return c.Voice.GoogleTTSVoice }},
	{"WHISPER_MODEL", func(c *Config) string { return c.Voice.WhisperModel }},
	{"TTS_MODEL", func(c *Config) string { return c.Voice.TTSModel }},
	{"TTS_VOICE", func(c *Config) string { return c.Voice.TTSVoice }},
	{"VOICE_CLONE_ENDPOINT", func(c *Config) string { return c.Voice.CloneEndpoint }},
	{"VOICE_SAMPLES_DIR", func(c *Config) string { return c.Voice.SamplesDir }},
	{"SERVER_HOST", func(c *Config) string { return c.Server.Host }},
	{"SERVER_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"CONSULTDECK_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"CONSULTDECK_HISTORY_DB", func(c *Config) string { return c.History.DBPath }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" || yamlVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set, do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("CONSULTDECK_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".consultdeck", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("consultdeck.yaml"); err == nil {
		return "consultdeck.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
