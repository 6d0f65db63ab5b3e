package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func Test_Config_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "gemini ok",
			cfg:  Config{Backend: BackendGemini, Gemini: GeminiConfig{APIKey: "k", Model: "m"}},
		},
		{
			name:    "gemini missing key",
			cfg:     Config{Backend: BackendGemini},
			wantErr: "GEMINI_API_KEY",
		},
		{
			name:    "openai missing key",
			cfg:     Config{Backend: BackendOpenAI},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "anthropic missing key",
			cfg:     Config{Backend: BackendAnthropic},
			wantErr: "ANTHROPIC_API_KEY",
		},
		{
			name:    "ollama missing model",
			cfg:     Config{Backend: BackendOllama},
			wantErr: "OLLAMA_MODEL",
		},
		{
			name:    "empty backend",
			cfg:     Config{},
			wantErr: "backend is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("want no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("want error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func Test_Config_ValidateAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{Backend: BackendAnthropic, Anthropic: AnthropicConfig{APIKey: "k", Model: "m"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.MaxTokens != defaultMaxTokens {
		t.Errorf("want default max tokens %d, got %d", defaultMaxTokens, cfg.MaxTokens)
	}
	if cfg.Temperature != defaultTemperature {
		t.Errorf("want default temperature %f, got %f", defaultTemperature, cfg.Temperature)
	}
}

func Test_New_UnknownBackend(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), &Config{Backend: "watson"}); err == nil {
		t.Fatal("want error for unknown backend")
	}
}

func Test_AnthropicGenerator_Generate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("unexpected api key header %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != anthropicVersion {
			t.Errorf("unexpected version header %q", got)
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.MaxTokens != 300 {
			t.Errorf("want max_tokens 300, got %d", req.MaxTokens)
		}
		if req.System == "" {
			t.Error("system prompt not forwarded")
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "The answer "},
				{"type": "text", "text": "continues."},
			},
		})
	}))
	defer srv.Close()

	gen, err := New(context.Background(), &Config{
		Backend:   BackendAnthropic,
		Anthropic: AnthropicConfig{APIKey: "test-key", Model: "claude-sonnet-4-20250514", BaseURL: srv.URL},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	out, err := gen.Generate(context.Background(), "be brief", "what is it?")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "The answer continues." {
		t.Errorf("unexpected output %q", out)
	}
}

func Test_AnthropicGenerator_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
	}))
	defer srv.Close()

	gen := newAnthropic(&Config{
		Backend:   BackendAnthropic,
		Anthropic: AnthropicConfig{APIKey: "k", Model: "m", BaseURL: srv.URL},
		MaxTokens: 300,
	})
	if _, err := gen.Generate(context.Background(), "s", "q"); err == nil {
		t.Fatal("want error on HTTP 429")
	} else if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error should carry the API message, got %v", err)
	}
}
