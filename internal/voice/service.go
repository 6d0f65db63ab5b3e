// Package voice implements speech for consultdeck: transcription of audience
// questions and synthesis of spoken answers. Both capabilities run through
// ordered provider fallback chains, so a single provider outage degrades
// quality instead of killing the feature. Synthesis can additionally speak in
// the presenter's own cloned voice when a reference sample was uploaded.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/genai"

	"github.com/consultdeck/consultdeck/internal/errdefs"
	"github.com/consultdeck/consultdeck/internal/fallback"
)

// minAudioBytes is the short-circuit threshold for transcription: anything
// smaller is a stray click of the record button, not speech, and yields an
// empty transcript without touching any provider.
const minAudioBytes = 500

var chainAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "consultdeck",
	Subsystem: "voice",
	Name:      "provider_attempts_total",
	Help:      "Fallback chain attempts by capability, provider, and outcome.",
}, []string{"capability", "provider", "outcome"})

// TranscribeRequest is one speech-to-text invocation.
type TranscribeRequest struct {
	// Audio is the recorded audio (WebM/Opus from the browser recorder).
	Audio []byte

	// Language hints the recognition language ("en" or "hi").
	Language string
}

// SynthesizeRequest is one text-to-speech invocation.
type SynthesizeRequest struct {
	// Text is what to speak.
	Text string

	// Language selects the synthesis voice ("en" or "hi").
	Language string

	// VoiceID requests the presenter's cloned voice; empty uses stock voices.
	VoiceID string
}

// Config holds the provider credentials and settings for the voice service.
// Providers with no credentials are simply left out of the chains.
type Config struct {
	// GoogleAPIKey enables Google Cloud Speech-to-Text and Text-to-Speech.
	GoogleAPIKey string

	// GoogleSTTLanguage is the recognition language code for Hindi sessions
	// (default: "hi-IN").
	GoogleSTTLanguage string

	// GoogleTTSVoice is the stock English synthesis voice.
	GoogleTTSVoice string

	// GeminiAPIKey enables the Gemini multimodal transcription fallback.
	GeminiAPIKey string

	// GeminiModel is the multimodal model used for transcription.
	GeminiModel string

	// GeminiClient optionally reuses an existing genai client instead of
	// creating one from GeminiAPIKey.
	GeminiClient *genai.Client

	// OpenAIAPIKey enables Whisper transcription and OpenAI synthesis.
	OpenAIAPIKey string

	// WhisperModel is the Whisper transcription model (default: "whisper-1").
	WhisperModel string

	// TTSModel is the OpenAI synthesis model (default: "tts-1").
	TTSModel string

	// TTSVoice overrides the default OpenAI English voice.
	TTSVoice string

	// CloneEndpoint is the voice-cloning sidecar base URL; empty disables
	// cloned synthesis.
	CloneEndpoint string

	// SamplesDir is where reference voice samples are stored
	// (default: "cloned_voices").
	SamplesDir string
}

// Service assembles and runs the transcription and synthesis chains.
type Service struct {
	google *googleProvider
	gemini *geminiTranscriber
	openai *openaiVoice
	free   *freeTTS
	clone  *CloneSynthesizer
	log    *slog.Logger
}

// NewService constructs the voice service from config, wiring in only the
// providers that have credentials. The free synthesis fallback is always
// present, so Synthesize never starts with an empty chain.
func NewService(ctx context.Context, cfg *Config, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}

	s := &Service{free: newFreeTTS(""), log: log}

	if cfg.GoogleAPIKey != "" {
		s.google = newGoogleProvider(&googleConfig{
			APIKey:       cfg.GoogleAPIKey,
			STTLanguage:  cfg.GoogleSTTLanguage,
			TTSVoiceName: cfg.GoogleTTSVoice,
		})
	}

	if cfg.GeminiClient != nil {
		s.gemini = newGeminiTranscriber(cfg.GeminiClient, cfg.GeminiModel)
	} else if cfg.GeminiAPIKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("voice: create Gemini client: %w", err)
		}
		s.gemini = newGeminiTranscriber(client, cfg.GeminiModel)
	}

	if cfg.OpenAIAPIKey != "" {
		s.openai = newOpenAIVoice(&openaiVoiceConfig{
			APIKey:       cfg.OpenAIAPIKey,
			WhisperModel: cfg.WhisperModel,
			TTSModel:     cfg.TTSModel,
			Voice:        cfg.TTSVoice,
		})
	}

	clone, err := NewCloneSynthesizer(cfg.SamplesDir, cfg.CloneEndpoint)
	if err != nil {
		return nil, err
	}
	s.clone = clone

	return s, nil
}

// Transcribe converts audience audio to text through the transcription
// chain. Audio below minAudioBytes returns an empty transcript and no error.
func (s *Service) Transcribe(ctx context.Context, req TranscribeRequest) (string, error) {
	if len(req.Audio) < minAudioBytes {
		s.log.Debug("audio below transcription threshold",
			slog.Int("bytes", len(req.Audio)),
			slog.Int("threshold", minAudioBytes))
		return "", nil
	}

	chain := fallback.New("transcribe", s.log, s.transcriptionProviders()...).
		WithResultHook(hook("transcribe"))
	text, provider, err := chain.Invoke(ctx, req)
	if err != nil {
		return "", err
	}
	s.log.Info("transcribed audio",
		slog.String("provider", provider),
		slog.Int("audio_bytes", len(req.Audio)),
		slog.Int("transcript_chars", len(text)))
	return text, nil
}

// Synthesize converts text to audio through the synthesis chain. It returns
// the audio bytes and the ID of the provider that produced them; cloned-voice
// output is WAV, everything else MP3.
func (s *Service) Synthesize(ctx context.Context, req SynthesizeRequest) ([]byte, string, error) {
	if req.Text == "" {
		return nil, "", errdefs.Validationf("text must not be empty")
	}

	chain := fallback.New("speak", s.log, s.synthesisProviders(req.VoiceID)...).
		WithResultHook(hook("speak"))
	audio, provider, err := chain.Invoke(ctx, req)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("synthesized speech",
		slog.String("provider", provider),
		slog.Int("text_chars", len(req.Text)),
		slog.Int("audio_bytes", len(audio)))
	return audio, provider, nil
}

// SaveVoiceSample stores a presenter's reference audio for cloned synthesis
// and returns the voice ID.
func (s *Service) SaveVoiceSample(sessionID string, audio []byte) (string, error) {
	return s.clone.SaveSample(sessionID, audio)
}

// transcriptionProviders builds the ordered transcription chain from the
// configured providers: Google Cloud first, then Gemini multimodal, then
// Whisper.
func (s *Service) transcriptionProviders() []fallback.Provider[TranscribeRequest, string] {
	var providers []fallback.Provider[TranscribeRequest, string]
	if s.google != nil {
		providers = append(providers, fallback.Provider[TranscribeRequest, string]{
			ID:      "google-stt",
			Timeout: 15 * time.Second,
			Invoke:  s.google.Transcribe,
		})
	}
	if s.gemini != nil {
		providers = append(providers, fallback.Provider[TranscribeRequest, string]{
			ID:      "gemini-stt",
			Timeout: 30 * time.Second,
			Invoke:  s.gemini.Transcribe,
		})
	}
	if s.openai != nil {
		providers = append(providers, fallback.Provider[TranscribeRequest, string]{
			ID:      "whisper",
			Timeout: 60 * time.Second,
			Invoke:  s.openai.Transcribe,
		})
	}
	return providers
}

// synthesisProviders builds the ordered synthesis chain. The cloned voice
// leads when the caller asked for it and a sample exists; the free fallback
// always closes the chain.
func (s *Service) synthesisProviders(voiceID string) []fallback.Provider[SynthesizeRequest, []byte] {
	var providers []fallback.Provider[SynthesizeRequest, []byte]
	if voiceID != "" && s.clone.Enabled() && s.clone.HasSample(voiceID) {
		providers = append(providers, fallback.Provider[SynthesizeRequest, []byte]{
			ID:      "cloned-voice",
			Timeout: 120 * time.Second,
			Invoke:  s.clone.Synthesize,
		})
	}
	if s.google != nil {
		providers = append(providers, fallback.Provider[SynthesizeRequest, []byte]{
			ID:      "google-tts",
			Timeout: 20 * time.Second,
			Invoke:  s.google.Synthesize,
		})
	}
	if s.openai != nil {
		providers = append(providers, fallback.Provider[SynthesizeRequest, []byte]{
			ID:      "openai-tts",
			Timeout: 30 * time.Second,
			Invoke:  s.openai.Synthesize,
		})
	}
	providers = append(providers, fallback.Provider[SynthesizeRequest, []byte]{
		ID:      "free-tts",
		Timeout: 30 * time.Second,
		Invoke:  s.free.Synthesize,
	})
	return providers
}

func hook(capability string) func(provider string, err error) {
	return func(provider string, err error) {
		outcome := "ok"
		if err != nil {
			outcome = "fail"
		}
		chainAttempts.WithLabelValues(capability, provider, outcome).Inc()
	}
}
