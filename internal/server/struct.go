package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/consultdeck/consultdeck/internal/ingest"
	"github.com/consultdeck/consultdeck/internal/rag"
	"github.com/consultdeck/consultdeck/internal/store"
	"github.com/consultdeck/consultdeck/internal/voice"
	"github.com/consultdeck/consultdeck/internal/websearch"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's own Prometheus metrics. If nil a fresh
	// registry is created. GET /metrics also gathers the default registry so
	// pipeline and voice counters appear alongside HTTP metrics.
	Registry *prometheus.Registry
}

// Deps bundles the services the HTTP handlers delegate to. Production wires
// the concrete types from ingest, rag, voice, websearch, and store; tests
// inject fakes through the narrow interfaces below.
type Deps struct {
	// Ingest handles document ingestion, status tracking, and session teardown.
	Ingest ingestService
	// Answerer produces grounded answers for POST /api/query.
	Answerer answerer
	// Voice handles speech transcription, synthesis, and voice cloning.
	// If nil, the /api/voice/* routes return 503.
	Voice voiceService
	// WebSearch handles POST /api/web-search.
	WebSearch webSearcher
	// History serves GET /api/history/{session_id}. If nil, history is
	// disabled and the route returns an empty list.
	History historyReader
}

// ingestService is the interface the ingestion handlers call.
// *ingest.Service satisfies it; tests inject a fake.
type ingestService interface {
	// StartIngest launches a background ingestion job and returns its
	// initial status snapshot.
	StartIngest(sessionID string, docs []ingest.Document, scope string) ingest.Status
	// IngestSync ingests synchronously and returns the chunk count.
	IngestSync(ctx context.Context, sessionID string, docs []ingest.Document, scope string) (int, error)
	// Status returns the current ingestion status for a session.
	Status(sessionID string) ingest.Status
	// DeleteSession removes the session's index data and status entry.
	DeleteSession(ctx context.Context, sessionID string) error
}

// answerer is the interface handleQuery calls to produce an answer.
// *rag.Answerer satisfies it; tests inject a fake.
type answerer interface {
	Answer(ctx context.Context, req rag.AnswerRequest) (string, []rag.Source, error)
}

// voiceService is the interface the /api/voice handlers call.
// *voice.Service satisfies it; tests inject a fake.
type voiceService interface {
	// Transcribe converts recorded audio to text.
	Transcribe(ctx context.Context, req voice.TranscribeRequest) (string, error)
	// Synthesize converts text to audio and reports the provider used.
	Synthesize(ctx context.Context, req voice.SynthesizeRequest) ([]byte, string, error)
	// SaveVoiceSample stores a reference recording for voice cloning.
	SaveVoiceSample(sessionID string, audio []byte) (string, error)
}

// webSearcher is the interface handleWebSearch calls.
// *websearch.Searcher satisfies it; tests inject a fake.
type webSearcher interface {
	SearchAndSummarize(ctx context.Context, query, slideContext, language, tone string) (string, []websearch.Result, error)
}

// historyReader is the interface handleHistory calls.
// *store.SQLiteStore satisfies it; tests inject a fake.
type historyReader interface {
	Recent(ctx context.Context, sessionID string, n int) ([]store.Exchange, error)
}

// Server is the HTTP server that exposes the presentation assistant API.
type Server struct {
	// deps holds the services the handlers delegate to.
	deps Deps
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments for HTTP traffic.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// ingestRequest is the JSON body for POST /api/ingest/documents.
type ingestRequest struct {
	// SessionID identifies the presentation session the documents belong to.
	SessionID string `json:"session_id"`
	// Documents is the list of files to index.
	Documents []ingest.Document `json:"documents"`
	// Scope is the default scope applied to documents that carry none.
	Scope string `json:"scope,omitempty"`
}

// slideIngestRequest is the JSON body for POST /api/ingest/slide.
type slideIngestRequest struct {
	// SessionID identifies the presentation session.
	SessionID string `json:"session_id"`
	// SlideID identifies the slide; indexed chunks are scoped to it.
	SlideID string `json:"slide_id"`
	// Title is the slide title.
	Title string `json:"title"`
	// Content is the slide's text content.
	Content string `json:"content"`
}

// slideIngestResponse is the JSON response for POST /api/ingest/slide.
type slideIngestResponse struct {
	// SessionID echoes the request session.
	SessionID string `json:"session_id"`
	// SlideID echoes the indexed slide.
	SlideID string `json:"slide_id"`
	// ChunksCreated is the number of chunks indexed for the slide.
	ChunksCreated int `json:"chunks_created"`
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// SessionID identifies the presentation session to query.
	SessionID string `json:"session_id"`
	// SlideID is the currently presented slide, used to widen retrieval.
	SlideID string `json:"slide_id,omitempty"`
	// SlideTitle is the current slide's title, included in the prompt.
	SlideTitle string `json:"slide_title,omitempty"`
	// SlideContext is the current slide's text, included in the prompt.
	SlideContext string `json:"slide_context,omitempty"`
	// Question is the audience question to answer.
	Question string `json:"question"`
	// Language selects the answer language ("en" or "hi"). Defaults to "en".
	Language string `json:"language,omitempty"`
	// Tone adjusts the answer register (e.g. "formal"). Optional.
	Tone string `json:"tone,omitempty"`
	// TopK overrides the number of chunks retrieved. Optional.
	TopK int `json:"top_k,omitempty"`
}

// queryResponse is the JSON response for POST /api/query.
type queryResponse struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Sources lists the documents the answer was grounded on.
	Sources []rag.Source `json:"sources"`
	// Language echoes the answer language.
	Language string `json:"language"`
	// SlideID echoes the slide the question was asked on.
	SlideID string `json:"slide_id,omitempty"`
}

// webSearchRequest is the JSON body for POST /api/web-search.
type webSearchRequest struct {
	// Query is the question to research on the web.
	Query string `json:"query"`
	// SlideContext is the current slide's text, included in the prompt.
	SlideContext string `json:"slide_context,omitempty"`
	// Language selects the answer language. Defaults to "en".
	Language string `json:"language,omitempty"`
	// Tone adjusts the answer register. Optional.
	Tone string `json:"tone,omitempty"`
}

// webSearchResponse is the JSON response for POST /api/web-search.
type webSearchResponse struct {
	// Answer is the summarised answer text.
	Answer string `json:"answer"`
	// Sources lists the web results the answer drew from.
	Sources []websearch.Result `json:"sources"`
	// Type marks the answer as web-sourced so clients can label it.
	Type string `json:"type"`
}

// historyResponse is the JSON response for GET /api/history/{session_id}.
type historyResponse struct {
	// SessionID echoes the requested session.
	SessionID string `json:"session_id"`
	// Exchanges is the session's recent question/answer pairs, oldest first.
	Exchanges []store.Exchange `json:"exchanges"`
}

// speakRequest is the JSON body for POST /api/voice/speak.
type speakRequest struct {
	// Text is the text to synthesise.
	Text string `json:"text"`
	// Language selects the voice language. Defaults to "en".
	Language string `json:"language,omitempty"`
	// ClonedVoiceID selects a previously saved cloned voice. Optional.
	ClonedVoiceID string `json:"cloned_voice_id,omitempty"`
}

// transcribeResponse is the JSON response for POST /api/voice/transcribe.
type transcribeResponse struct {
	// Text is the transcript. Empty when the clip was too short to contain speech.
	Text string `json:"text"`
	// Language echoes the transcription language.
	Language string `json:"language"`
}

// cloneResponse is the JSON response for POST /api/voice/clone.
type cloneResponse struct {
	// Status is "ok" when the sample was accepted.
	Status string `json:"status"`
	// VoiceID is the identifier to pass as cloned_voice_id in speak requests.
	VoiceID string `json:"voice_id"`
	// Message is a human-readable confirmation.
	Message string `json:"message"`
}

// errorResponse is the JSON body returned on handler errors.
type errorResponse struct {
	// Error is the failure description.
	Error string `json:"error"`
}
