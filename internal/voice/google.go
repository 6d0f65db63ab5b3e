package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Browser MediaRecorder output: WebM container, Opus codec, 48 kHz.
const (
	googleAudioEncoding = "WEBM_OPUS"
	googleSampleRate    = 48000
)

// googleProvider serves both speech recognition and synthesis through the
// Google Cloud REST APIs, authenticated by API key.
type googleProvider struct {
	apiKey       string
	sttLanguage  string
	ttsVoiceName string
	sttBaseURL   string
	ttsBaseURL   string
	client       *http.Client
}

// googleConfig holds the settings for constructing a googleProvider.
type googleConfig struct {
	// APIKey is the Google Cloud API key with Speech and Text-to-Speech
	// enabled.
	APIKey string
	// STTLanguage is the recognition language code (e.g. "hi-IN").
	STTLanguage string
	// TTSVoiceName is the synthesis voice (e.g. "en-IN-Wavenet-D").
	TTSVoiceName string
	// STTBaseURL and TTSBaseURL override the API endpoints for tests.
	STTBaseURL string
	TTSBaseURL string
}

func newGoogleProvider(cfg *googleConfig) *googleProvider {
	sttBase := cfg.STTBaseURL
	if sttBase == "" {
		sttBase = "https://speech.googleapis.com"
	}
	ttsBase := cfg.TTSBaseURL
	if ttsBase == "" {
		ttsBase = "https://texttospeech.googleapis.com"
	}
	sttLang := cfg.STTLanguage
	if sttLang == "" {
		sttLang = "en-US"
	}
	voiceName := cfg.TTSVoiceName
	if voiceName == "" {
		voiceName = "en-IN-Wavenet-D"
	}
	return &googleProvider{
		apiKey:       cfg.APIKey,
		sttLanguage:  sttLang,
		ttsVoiceName: voiceName,
		sttBaseURL:   sttBase,
		ttsBaseURL:   ttsBase,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

type googleRecognizeRequest struct {
	Config struct {
		Encoding                   string `json:"encoding"`
		SampleRateHertz            int    `json:"sampleRateHertz"`
		LanguageCode               string `json:"languageCode"`
		EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
	} `json:"config"`
	Audio struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type googleRecognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"results"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Transcribe converts recorded audio to text via the Speech-to-Text REST API.
func (g *googleProvider) Transcribe(ctx context.Context, req TranscribeRequest) (string, error) {
	var body googleRecognizeRequest
	body.Config.Encoding = googleAudioEncoding
	body.Config.SampleRateHertz = googleSampleRate
	body.Config.LanguageCode = g.languageCode(req.Language)
	body.Config.EnableAutomaticPunctuation = true
	body.Audio.Content = base64.StdEncoding.EncodeToString(req.Audio)

	var result googleRecognizeResponse
	if err := g.post(ctx, g.sttBaseURL+"/v1/speech:recognize", body, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("google stt: %s", result.Error.Message)
	}
	if len(result.Results) == 0 || len(result.Results[0].Alternatives) == 0 {
		return "", nil
	}
	return result.Results[0].Alternatives[0].Transcript, nil
}

type googleSynthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type googleSynthesizeResponse struct {
	AudioContent string `json:"audioContent"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Synthesize converts text to MP3 audio via the Text-to-Speech REST API.
func (g *googleProvider) Synthesize(ctx context.Context, req SynthesizeRequest) ([]byte, error) {
	var body googleSynthesizeRequest
	body.Input.Text = req.Text
	body.Voice.LanguageCode, body.Voice.Name = g.voiceFor(req.Language)
	body.AudioConfig.AudioEncoding = "MP3"

	var result googleSynthesizeResponse
	if err := g.post(ctx, g.ttsBaseURL+"/v1/text:synthesize", body, &result); err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, fmt.Errorf("google tts: %s", result.Error.Message)
	}
	audio, err := base64.StdEncoding.DecodeString(result.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("google tts: decode audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("google tts: empty audio in response")
	}
	return audio, nil
}

func (g *googleProvider) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("google: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"?key="+g.apiKey, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("google: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("google: request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("google: decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("google: HTTP %d", resp.StatusCode)
	}
	return nil
}

// languageCode maps the request language to a recognition language code.
func (g *googleProvider) languageCode(language string) string {
	if language == "hi" {
		if g.sttLanguage != "" && g.sttLanguage != "en-US" {
			return g.sttLanguage
		}
		return "hi-IN"
	}
	return "en-US"
}

// voiceFor maps the request language to a synthesis voice.
func (g *googleProvider) voiceFor(language string) (code, name string) {
	if language == "hi" {
		return "hi-IN", "hi-IN-Wavenet-A"
	}
	return "en-IN", g.ttsVoiceName
}
