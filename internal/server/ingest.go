package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/consultdeck/consultdeck/internal/errdefs"
	"github.com/consultdeck/consultdeck/internal/ingest"
	"github.com/consultdeck/consultdeck/internal/logging"
)

// handleIngestDocuments handles POST /api/ingest/documents. Ingestion runs in
// the background; the response is 202 Accepted with the initial status
// snapshot, and clients poll GET /api/ingest/status/{session_id}.
func (s *Server) handleIngestDocuments(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if len(req.Documents) == 0 {
		s.writeError(w, http.StatusBadRequest, "documents must not be empty")
		return
	}

	status := s.deps.Ingest.StartIngest(req.SessionID, req.Documents, req.Scope)

	s.writeJSON(w, http.StatusAccepted, status)
}

// handleIngestSlide handles POST /api/ingest/slide. Slide content is small,
// so it is ingested synchronously and scoped to the slide so retrieval can
// prioritise the slide currently on screen.
func (s *Server) handleIngestSlide(w http.ResponseWriter, r *http.Request) {
	var req slideIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" || req.SlideID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id and slide_id are required")
		return
	}
	if req.Content == "" {
		s.writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	doc := ingest.Document{
		Path:    fmt.Sprintf("slide:%s:%s", req.SlideID, req.Title),
		Content: req.Content,
		Scope:   req.SlideID,
	}

	chunks, err := s.deps.Ingest.IngestSync(r.Context(), req.SessionID, []ingest.Document{doc}, req.SlideID)
	if err != nil {
		log := logging.FromContext(r.Context())
		log.Error("slide ingest failed",
			slog.String("session_id", req.SessionID),
			slog.String("slide_id", req.SlideID),
			slog.Any("error", err),
		)
		s.writeError(w, http.StatusInternalServerError, "slide ingestion failed")
		return
	}

	s.writeJSON(w, http.StatusOK, slideIngestResponse{
		SessionID:     req.SessionID,
		SlideID:       req.SlideID,
		ChunksCreated: chunks,
	})
}

// handleIngestStatus handles GET /api/ingest/status/{session_id}.
func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	s.writeJSON(w, http.StatusOK, s.deps.Ingest.Status(sessionID))
}

// handleDeleteSession handles DELETE /api/session/{session_id}. It removes
// the session's indexed content and status entry. Deleting a session that
// was never ingested succeeds.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if err := s.deps.Ingest.DeleteSession(r.Context(), sessionID); err != nil {
		if errdefs.IsValidation(err) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log := logging.FromContext(r.Context())
		log.Error("session delete failed",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
		s.writeError(w, http.StatusInternalServerError, "session deletion failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":     "deleted",
		"session_id": sessionID,
	})
}
