package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/consultdeck/consultdeck/internal/embedder"
	"github.com/consultdeck/consultdeck/internal/rag"
	"github.com/consultdeck/consultdeck/internal/voice"
)

// getEnvOrDefault returns the env var value or the fallback if unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env var parsed as int, or the fallback if unset or
// unparseable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// buildIndex constructs the session content index selected by INDEX_PROVIDER.
// "memory" keeps everything in process for development; anything else
// connects to Qdrant. The returned QdrantIndex is nil in memory mode so
// callers can skip the readiness pinger.
func buildIndex(log *slog.Logger) (rag.ContentIndex, *rag.QdrantIndex, error) {
	if getEnvOrDefault("INDEX_PROVIDER", "qdrant") == "memory" {
		log.Info("index: using in-memory store")
		return rag.NewMemoryIndex(), nil, nil
	}

	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	dims := getEnvInt("EMBEDDING_DIMENSIONS", embedder.DefaultDimensions(embedder.ResolveBackend()))

	idx, err := rag.NewQdrantIndex(&rag.QdrantConfig{
		Host:       host,
		Port:       port,
		VectorSize: uint64(dims),
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}

	log.Info("index: qdrant ready",
		slog.String("host", host),
		slog.Int("port", port),
		slog.Int("dimensions", dims),
	)
	return idx, idx, nil
}

// voiceConfigFromEnv assembles the voice service configuration from the
// environment. Missing credentials disable the corresponding providers
// rather than failing startup.
func voiceConfigFromEnv() *voice.Config {
	return &voice.Config{
		GoogleAPIKey:      os.Getenv("GOOGLE_API_KEY"),
		GoogleSTTLanguage: os.Getenv("GOOGLE_STT_LANGUAGE_CODE"),
		GoogleTTSVoice:    os.Getenv("GOOGLE_TTS_VOICE_NAME"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       os.Getenv("GEMINI_MODEL"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		WhisperModel:      os.Getenv("WHISPER_MODEL"),
		TTSModel:          os.Getenv("TTS_MODEL"),
		TTSVoice:          os.Getenv("TTS_VOICE"),
		CloneEndpoint:     os.Getenv("VOICE_CLONE_ENDPOINT"),
		SamplesDir:        os.Getenv("VOICE_SAMPLES_DIR"),
	}
}
