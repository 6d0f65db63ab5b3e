package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// writeTestConfig writes a YAML config to a temp dir and returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func Test_Load_AppliesYAMLToEnv(t *testing.T) {
	for _, key := range []string{"AI_PROVIDER", "GEMINI_API_KEY", "QDRANT_HOST", "CHUNK_SIZE", "VOICE_CLONE_ENDPOINT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	path := writeTestConfig(t, `
ai:
  provider: gemini
  gemini:
    api_key: yaml-key
index:
  provider: qdrant
  qdrant:
    host: qdrant.internal
chunking:
  size: 600
voice:
  clone_endpoint: http://tts-sidecar:8020
`)

	loaded, err := Load(path, slog.Default())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != path {
		t.Errorf("want loaded path %q, got %q", path, loaded)
	}

	want := map[string]string{
		"AI_PROVIDER":          "gemini",
		"GEMINI_API_KEY":       "yaml-key",
		"QDRANT_HOST":          "qdrant.internal",
		"CHUNK_SIZE":           "600",
		"VOICE_CLONE_ENDPOINT": "http://tts-sidecar:8020",
	}
	for key, val := range want {
		if got := os.Getenv(key); got != val {
			t.Errorf("%s: want %q, got %q", key, val, got)
		}
	}
}

func Test_Load_EnvVarsWin(t *testing.T) {
	t.Setenv("AI_PROVIDER", "openai")

	path := writeTestConfig(t, "ai:\n  provider: gemini\n")
	if _, err := Load(path, slog.Default()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := os.Getenv("AI_PROVIDER"); got != "openai" {
		t.Errorf("env var overridden by YAML: got %q", got)
	}
}

func Test_Load_NoFileIsNotAnError(t *testing.T) {
	t.Setenv("CONSULTDECK_CONFIG", "")
	t.Setenv("HOME", t.TempDir())

	loaded, err := Load("", slog.Default())
	if err != nil {
		t.Fatalf("Load without a file must not fail: %v", err)
	}
	if loaded != "" {
		t.Errorf("want empty path, got %q", loaded)
	}
}

func Test_Load_MalformedYAML(t *testing.T) {
	path := writeTestConfig(t, "ai: [not: valid\n")
	if _, err := Load(path, slog.Default()); err == nil {
		t.Fatal("want error for malformed YAML")
	}
}

func Test_ResolveConfigPath_EnvVariable(t *testing.T) {
	path := writeTestConfig(t, "ai:\n  provider: gemini\n")
	t.Setenv("CONSULTDECK_CONFIG", path)

	if got := resolveConfigPath(""); got != path {
		t.Errorf("want %q, got %q", path, got)
	}
}

func Test_ResolveConfigPath_ExplicitMissing(t *testing.T) {
	if got := resolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); got != "" {
		t.Errorf("missing explicit path should resolve to empty, got %q", got)
	}
}

func Test_ValueFormatting(t *testing.T) {
	t.Parallel()

	if got := intStr(0); got != "" {
		t.Errorf("intStr(0): want empty, got %q", got)
	}
	if got := intStr(42); got != "42" {
		t.Errorf("intStr(42): got %q", got)
	}
	if got := float32Str(0.4); got != "0.4" {
		t.Errorf("float32Str(0.4): got %q", got)
	}
	if got := boolStr(true); got != "true" {
		t.Errorf("boolStr(true): got %q", got)
	}
	if got := boolStr(false); got != "" {
		t.Errorf("boolStr(false): want empty, got %q", got)
	}
}
