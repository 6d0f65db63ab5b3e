package embedder

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// knownChatModelPrefixes contains name fragments that identify chat models
// which are NOT suitable for embedding. If EMBEDDING_MODEL matches any of
// these, a warning is emitted so the operator knows the retrieval pipeline
// may be misconfigured.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-5",
	"o1",
	"o3",
	"gemini-1",
	"gemini-2",
	"gemini-pro",
	"gemini-flash",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"phi-",
	"phi3",
	"claude",
	"deepseek",
	"qwen",
}

// looksLikeChatModel returns true when the model name resembles a known chat
// model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			// "gemini-embedding-001" is an embedding model despite the prefix.
			if strings.Contains(lower, "embed") {
				return false
			}
			return true
		}
	}
	return false
}

// ValidateForRetrieval checks that the embedder configuration is usable
// before any session ingests content. It returns an error for configurations
// that are clearly broken (resolved backend with no credentials) and logs a
// warning when EMBEDDING_MODEL looks like a chat model.
//
// This is a pre-flight check: call it at startup so operators get a clear
// error instead of a cryptic failure during the first embed call.
func ValidateForRetrieval(log *slog.Logger) error {
	backend := ResolveBackend()

	// Warn when the backend is inherited from the chat provider without an
	// explicit override; the operator may not have chosen it deliberately.
	if os.Getenv("EMBEDDING_PROVIDER") == "" && os.Getenv("AI_PROVIDER") != "" {
		log.Warn("embedder: EMBEDDING_PROVIDER not set, inheriting chat provider as embedding backend",
			slog.String("backend", backend),
			slog.String("hint", "set EMBEDDING_PROVIDER=gemini (or openai/ollama) to be explicit"),
		)
	}

	switch backend {
	case "gemini":
		if os.Getenv("EMBEDDING_API_KEY") == "" && os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("embedder: no Gemini API key found; set GEMINI_API_KEY or EMBEDDING_API_KEY")
		}
	case "openai":
		if os.Getenv("EMBEDDING_API_KEY") == "" && os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("embedder: no OpenAI API key found; set OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
	case "ollama":
		// Local backend, no credentials.
	default:
		return fmt.Errorf("embedder: unknown backend %q (valid values: gemini, openai, ollama)", backend)
	}

	if model := os.Getenv("EMBEDDING_MODEL"); model != "" && looksLikeChatModel(model) {
		log.Warn("embedder: EMBEDDING_MODEL looks like a chat model, not an embedding model",
			slog.String("model", model),
			slog.String("hint", "use a dedicated embedding model e.g. gemini-embedding-001, text-embedding-3-small"),
		)
	}
	return nil
}
