package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func Test_GoogleProvider_Transcribe(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech:recognize" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Error("API key not passed as query parameter")
		}
		var req googleRecognizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Config.Encoding != googleAudioEncoding {
			t.Errorf("want encoding %q, got %q", googleAudioEncoding, req.Config.Encoding)
		}
		if req.Config.SampleRateHertz != googleSampleRate {
			t.Errorf("want sample rate %d, got %d", googleSampleRate, req.Config.SampleRateHertz)
		}
		if req.Config.LanguageCode != "hi-IN" {
			t.Errorf("want hi-IN for Hindi, got %q", req.Config.LanguageCode)
		}
		if _, err := base64.StdEncoding.DecodeString(req.Audio.Content); err != nil {
			t.Errorf("audio is not valid base64: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"alternatives": []map[string]any{{"transcript": "namaste"}}},
			},
		})
	}))
	defer srv.Close()

	g := newGoogleProvider(&googleConfig{APIKey: "test-key", STTBaseURL: srv.URL})
	text, err := g.Transcribe(context.Background(), TranscribeRequest{Audio: []byte("opus-bytes"), Language: "hi"})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "namaste" {
		t.Errorf("want %q, got %q", "namaste", text)
	}
}

func Test_GoogleProvider_TranscribeNoSpeech(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Recognizable silence: HTTP 200 with no results.
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	g := newGoogleProvider(&googleConfig{APIKey: "k", STTBaseURL: srv.URL})
	text, err := g.Transcribe(context.Background(), TranscribeRequest{Audio: []byte("silence")})
	if err != nil {
		t.Fatalf("silence must not error: %v", err)
	}
	if text != "" {
		t.Errorf("want empty transcript, got %q", text)
	}
}

func Test_GoogleProvider_Synthesize(t *testing.T) {
	t.Parallel()

	mp3 := []byte("fake-mp3-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text:synthesize" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req googleSynthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Input.Text != "hello" {
			t.Errorf("unexpected input %q", req.Input.Text)
		}
		if req.AudioConfig.AudioEncoding != "MP3" {
			t.Errorf("want MP3 encoding, got %q", req.AudioConfig.AudioEncoding)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"audioContent": base64.StdEncoding.EncodeToString(mp3),
		})
	}))
	defer srv.Close()

	g := newGoogleProvider(&googleConfig{APIKey: "k", TTSBaseURL: srv.URL})
	audio, err := g.Synthesize(context.Background(), SynthesizeRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if string(audio) != string(mp3) {
		t.Error("audio not decoded from base64 response")
	}
}

func Test_OpenAIVoice_Transcribe(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("want model whisper-1, got %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("want language en, got %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("audio file missing: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"text": "hello world"})
	}))
	defer srv.Close()

	o := newOpenAIVoice(&openaiVoiceConfig{APIKey: "k", BaseURL: srv.URL})
	text, err := o.Transcribe(context.Background(), TranscribeRequest{Audio: []byte("webm"), Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("want %q, got %q", "hello world", text)
	}
}

func Test_OpenAIVoice_SynthesizeVoiceMapping(t *testing.T) {
	t.Parallel()

	var gotVoice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openaiTTSRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotVoice = req.Voice
		w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	o := newOpenAIVoice(&openaiVoiceConfig{APIKey: "k", BaseURL: srv.URL})

	if _, err := o.Synthesize(context.Background(), SynthesizeRequest{Text: "hi there", Language: "en"}); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if gotVoice != "alloy" {
		t.Errorf("English: want alloy, got %q", gotVoice)
	}

	if _, err := o.Synthesize(context.Background(), SynthesizeRequest{Text: "namaste", Language: "hi"}); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if gotVoice != "nova" {
		t.Errorf("Hindi: want nova, got %q", gotVoice)
	}
}

func Test_FreeTTS_ConcatenatesSegments(t *testing.T) {
	t.Parallel()

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate_tts" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		requests++
		w.Write([]byte("seg;"))
	}))
	defer srv.Close()

	f := newFreeTTS(srv.URL)
	long := ""
	for i := 0; i < 60; i++ {
		long += "spoken words here "
	}
	audio, err := f.Synthesize(context.Background(), SynthesizeRequest{Text: long})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if requests < 2 {
		t.Errorf("long text should need multiple segments, got %d requests", requests)
	}
	if len(audio) != requests*4 {
		t.Errorf("segments not concatenated: %d bytes from %d requests", len(audio), requests)
	}
}
