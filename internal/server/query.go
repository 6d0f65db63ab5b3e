package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/consultdeck/consultdeck/internal/errdefs"
	"github.com/consultdeck/consultdeck/internal/fallback"
	"github.com/consultdeck/consultdeck/internal/logging"
	"github.com/consultdeck/consultdeck/internal/rag"
	"github.com/consultdeck/consultdeck/internal/store"
)

// historyLimit is the number of exchanges returned by GET /api/history.
const historyLimit = 50

// handleQuery handles POST /api/query. It retrieves session content relevant
// to the question, generates a grounded answer, and returns it with sources.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.Question == "" {
		s.writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	language := req.Language
	if language == "" {
		language = "en"
	}

	answer, sources, err := s.deps.Answerer.Answer(r.Context(), rag.AnswerRequest{
		SessionID:    req.SessionID,
		SlideID:      req.SlideID,
		SlideTitle:   req.SlideTitle,
		SlideContext: req.SlideContext,
		Question:     req.Question,
		Language:     language,
		Tone:         req.Tone,
		TopK:         req.TopK,
	})
	if err != nil {
		s.writeServiceError(w, r, "query failed", err)
		return
	}

	if sources == nil {
		sources = []rag.Source{}
	}
	s.writeJSON(w, http.StatusOK, queryResponse{
		Answer:   answer,
		Sources:  sources,
		Language: language,
		SlideID:  req.SlideID,
	})
}

// handleWebSearch handles POST /api/web-search. It searches the web for the
// query and summarises the results for the presenter.
func (s *Server) handleWebSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.WebSearch == nil {
		s.writeError(w, http.StatusServiceUnavailable, "web search is not configured")
		return
	}

	var req webSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	language := req.Language
	if language == "" {
		language = "en"
	}

	answer, results, err := s.deps.WebSearch.SearchAndSummarize(r.Context(), req.Query, req.SlideContext, language, req.Tone)
	if err != nil {
		s.writeServiceError(w, r, "web search failed", err)
		return
	}

	s.writeJSON(w, http.StatusOK, webSearchResponse{
		Answer:  answer,
		Sources: results,
		Type:    "web_search",
	})
}

// handleHistory handles GET /api/history/{session_id}. When no history store
// is configured the response is an empty list rather than an error, so
// clients need no special casing.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	exchanges := []store.Exchange{}
	if s.deps.History != nil {
		var err error
		exchanges, err = s.deps.History.Recent(r.Context(), sessionID, historyLimit)
		if err != nil {
			log := logging.FromContext(r.Context())
			log.Error("history read failed",
				slog.String("session_id", sessionID),
				slog.Any("error", err),
			)
			s.writeError(w, http.StatusInternalServerError, "history read failed")
			return
		}
		if exchanges == nil {
			exchanges = []store.Exchange{}
		}
	}

	s.writeJSON(w, http.StatusOK, historyResponse{
		SessionID: sessionID,
		Exchanges: exchanges,
	})
}

// writeServiceError maps a service error to an HTTP status: validation errors
// become 400, exhausted provider chains become 502, everything else 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errdefs.IsValidation(err) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log := logging.FromContext(r.Context())
	log.Error(msg, slog.Any("error", err))

	if fallback.IsAllFailed(err) {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeError(w, http.StatusInternalServerError, msg)
}
