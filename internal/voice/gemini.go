package voice

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// transcribePrompt instructs the multimodal model to return only the spoken
// words, which keeps post-processing to quote stripping.
const transcribePrompt = "Transcribe this audio exactly as spoken. Return only the transcript text with no commentary, labels, or quotation marks."

// geminiTranscriber uses a Gemini multimodal model as a speech-to-text
// fallback: the audio goes in as an inline part and the transcript comes back
// as plain text.
type geminiTranscriber struct {
	client *genai.Client
	model  string
}

func newGeminiTranscriber(client *genai.Client, model string) *geminiTranscriber {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &geminiTranscriber{client: client, model: model}
}

// Transcribe implements speech recognition via multimodal generation.
func (g *geminiTranscriber) Transcribe(ctx context.Context, req TranscribeRequest) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(transcribePrompt),
		genai.NewPartFromBytes(req.Audio, "audio/webm"),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini stt: request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	text = strings.Trim(text, `"'`)
	if text == "" {
		return "", fmt.Errorf("gemini stt: empty transcript in response")
	}
	return text, nil
}
