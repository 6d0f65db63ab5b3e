package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/consultdeck/consultdeck/internal/voice"
)

// maxAudioUpload caps multipart audio uploads at 25 MiB, matching the
// largest clip the transcription providers accept.
const maxAudioUpload = 25 << 20

// handleTranscribe handles POST /api/voice/transcribe. The request is
// multipart form data with an "audio" file part and an optional "language"
// field. Clips too short to contain speech transcribe to an empty string.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.deps.Voice == nil {
		s.writeError(w, http.StatusServiceUnavailable, "voice is not configured")
		return
	}

	audio, language, ok := s.readAudioUpload(w, r)
	if !ok {
		return
	}
	if language == "" {
		language = "en"
	}

	text, err := s.deps.Voice.Transcribe(r.Context(), voice.TranscribeRequest{
		Audio:    audio,
		Language: language,
	})
	if err != nil {
		s.writeServiceError(w, r, "transcription failed", err)
		return
	}

	s.writeJSON(w, http.StatusOK, transcribeResponse{Text: text, Language: language})
}

// handleSpeak handles POST /api/voice/speak. The response body is raw audio:
// WAV when the cloned voice produced it, MP3 otherwise.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if s.deps.Voice == nil {
		s.writeError(w, http.StatusServiceUnavailable, "voice is not configured")
		return
	}

	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	language := req.Language
	if language == "" {
		language = "en"
	}

	audio, provider, err := s.deps.Voice.Synthesize(r.Context(), voice.SynthesizeRequest{
		Text:     req.Text,
		Language: language,
		VoiceID:  req.ClonedVoiceID,
	})
	if err != nil {
		s.writeServiceError(w, r, "synthesis failed", err)
		return
	}

	contentType := "audio/mpeg"
	if provider == "cloned-voice" {
		contentType = "audio/wav"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Voice-Provider", provider)
	w.Write(audio)
}

// handleClone handles POST /api/voice/clone. The request is multipart form
// data with an "audio" file part holding the reference recording and a
// "session_id" field. The returned voice_id is passed back as
// cloned_voice_id in subsequent speak requests.
func (s *Server) handleClone(w http.ResponseWriter, r *http.Request) {
	if s.deps.Voice == nil {
		s.writeError(w, http.StatusServiceUnavailable, "voice is not configured")
		return
	}

	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioUpload))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read audio")
		return
	}

	voiceID, err := s.deps.Voice.SaveVoiceSample(sessionID, audio)
	if err != nil {
		s.writeServiceError(w, r, "voice clone failed", err)
		return
	}

	s.writeJSON(w, http.StatusOK, cloneResponse{
		Status:  "ok",
		VoiceID: voiceID,
		Message: "voice sample saved, cloned synthesis enabled for this session",
	})
}

// readAudioUpload parses a multipart form and returns the "audio" part's
// bytes and the "language" field. On failure it writes the error response
// and returns ok=false.
func (s *Server) readAudioUpload(w http.ResponseWriter, r *http.Request) (audio []byte, language string, ok bool) {
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, "", false
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "audio file is required")
		return nil, "", false
	}
	defer file.Close()

	audio, err = io.ReadAll(io.LimitReader(file, maxAudioUpload))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read audio")
		return nil, "", false
	}

	return audio, r.FormValue("language"), true
}
