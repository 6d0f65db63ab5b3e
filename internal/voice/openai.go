package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// ttsVoiceByLanguage maps request languages to OpenAI TTS voices.
var ttsVoiceByLanguage = map[string]string{
	"en": "alloy",
	"hi": "nova",
}

// openaiVoice serves transcription (Whisper) and synthesis through the
// OpenAI audio endpoints.
type openaiVoice struct {
	apiKey       string
	whisperModel string
	ttsModel     string
	defaultVoice string
	baseURL      string
	client       *http.Client
}

// openaiVoiceConfig holds the settings for constructing an openaiVoice.
type openaiVoiceConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// WhisperModel is the transcription model (default: "whisper-1").
	WhisperModel string
	// TTSModel is the synthesis model (default: "tts-1").
	TTSModel string
	// Voice overrides the default English voice.
	Voice string
	// BaseURL overrides the API base for tests.
	BaseURL string
}

func newOpenAIVoice(cfg *openaiVoiceConfig) *openaiVoice {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	whisper := cfg.WhisperModel
	if whisper == "" {
		whisper = "whisper-1"
	}
	tts := cfg.TTSModel
	if tts == "" {
		tts = "tts-1"
	}
	voice := cfg.Voice
	if voice == "" {
		voice = ttsVoiceByLanguage["en"]
	}
	return &openaiVoice{
		apiKey:       cfg.APIKey,
		whisperModel: whisper,
		ttsModel:     tts,
		defaultVoice: voice,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
}

type whisperResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Transcribe sends the audio to the Whisper transcription endpoint as a
// multipart upload.
func (o *openaiVoice) Transcribe(ctx context.Context, req TranscribeRequest) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", "audio.webm")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return "", fmt.Errorf("whisper: write audio: %w", err)
	}
	if err := mw.WriteField("model", o.whisperModel); err != nil {
		return "", fmt.Errorf("whisper: write model field: %w", err)
	}
	if req.Language != "" {
		if err := mw.WriteField("language", req.Language); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("whisper: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("whisper: decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return "", fmt.Errorf("whisper: %s", msg)
	}
	return result.Text, nil
}

type openaiTTSRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

// Synthesize sends the text to the speech endpoint and returns MP3 bytes.
func (o *openaiVoice) Synthesize(ctx context.Context, req SynthesizeRequest) ([]byte, error) {
	voice := o.defaultVoice
	if v, ok := ttsVoiceByLanguage[req.Language]; ok && req.Language != "en" {
		voice = v
	}

	payload, err := json.Marshal(openaiTTSRequest{Model: o.ttsModel, Input: req.Text, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("openai tts: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openai tts: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai tts: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("openai tts: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai tts: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai tts: empty audio in response")
	}
	return audio, nil
}
