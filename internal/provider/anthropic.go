package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// anthropicVersion is the Messages API version header value.
const anthropicVersion = "2023-06-01"

// anthropicGenerator implements AnswerGenerator against the Anthropic
// Messages API directly. No eino adapter exists for Anthropic, so this
// backend speaks plain HTTP like the REST embedders do.
type anthropicGenerator struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float32
	client      *http.Client
}

// newAnthropic constructs the Anthropic backend from the given config.
func newAnthropic(cfg *Config) *anthropicGenerator {
	baseURL := cfg.Anthropic.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return &anthropicGenerator{
		apiKey:      cfg.Anthropic.APIKey,
		model:       cfg.Anthropic.Model,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

// anthropicRequest is the JSON body sent to /v1/messages.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature float32            `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the JSON body returned from /v1/messages.
type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate implements AnswerGenerator.
func (g *anthropicGenerator) Generate(ctx context.Context, system, question string) (string, error) {
	payload, err := json.Marshal(anthropicRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		System:      system,
		Temperature: g.temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: question}},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("anthropic: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return "", fmt.Errorf("anthropic: %s", msg)
	}

	var b strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic: response contained no text blocks")
	}
	return b.String(), nil
}
