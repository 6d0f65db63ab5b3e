package provider

import (
	"context"
	"fmt"

	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// chatModelGenerator adapts an eino chat model to the AnswerGenerator
// interface: one system message, one user message, one completion.
type chatModelGenerator struct {
	model model.BaseChatModel
}

// Generate implements AnswerGenerator.
func (g *chatModelGenerator) Generate(ctx context.Context, system, question string) (string, error) {
	msg, err := g.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(question),
	})
	if err != nil {
		return "", fmt.Errorf("provider: generation failed: %w", err)
	}
	return msg.Content, nil
}

// newGemini constructs an AnswerGenerator backed by Google Gemini.
func newGemini(ctx context.Context, cfg *Config) (AnswerGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create Gemini client: %w", err)
	}
	maxTokens := cfg.MaxTokens
	temp := cfg.Temperature
	cm, err := einogemini.NewChatModel(ctx, &einogemini.Config{
		Client:      client,
		Model:       cfg.Gemini.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create Gemini chat model: %w", err)
	}
	return &chatModelGenerator{model: cm}, nil
}

// newOpenAI constructs an AnswerGenerator backed by the OpenAI API.
func newOpenAI(ctx context.Context, cfg *Config) (AnswerGenerator, error) {
	maxTokens := cfg.MaxTokens
	temp := cfg.Temperature
	cm, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		Model:       cfg.OpenAI.Model,
		APIKey:      cfg.OpenAI.APIKey,
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create OpenAI chat model: %w", err)
	}
	return &chatModelGenerator{model: cm}, nil
}

// newOllama constructs an AnswerGenerator backed by a local Ollama instance.
func newOllama(ctx context.Context, cfg *Config) (AnswerGenerator, error) {
	host := cfg.Ollama.Host
	if host == "" {
		host = "http://localhost:11434"
	}
	cm, err := einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{
		BaseURL: host,
		Model:   cfg.Ollama.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create Ollama chat model: %w", err)
	}
	return &chatModelGenerator{model: cm}, nil
}
