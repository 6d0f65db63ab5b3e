package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/consultdeck/consultdeck/internal/ingest"
)

func TestHandleIngestDocuments_Accepted(t *testing.T) {
	t.Parallel()

	fake := &fakeIngest{status: ingest.Status{
		SessionID:  "s1",
		State:      ingest.StateProcessing,
		TotalFiles: 2,
		Message:    "processing 2 files",
	}}
	s := newTestServer(Deps{Ingest: fake})

	body := `{"session_id":"s1","documents":[{"path":"a.md","content":"alpha"},{"path":"b.md","content":"beta"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/documents", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleIngestDocuments(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(fake.startedDocs) != 2 {
		t.Errorf("expected 2 documents passed through, got %d", len(fake.startedDocs))
	}

	var resp ingest.Status
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != ingest.StateProcessing {
		t.Errorf("expected processing state, got %q", resp.State)
	}
}

func TestHandleIngestDocuments_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{`},
		{"missing session", `{"documents":[{"path":"a.md","content":"x"}]}`},
		{"empty documents", `{"session_id":"s1","documents":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(Deps{Ingest: &fakeIngest{}})
			req := httptest.NewRequest(http.MethodPost, "/api/ingest/documents", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			s.handleIngestDocuments(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestHandleIngestSlide_ScopedToSlide(t *testing.T) {
	t.Parallel()

	fake := &fakeIngest{syncChunks: 1}
	s := newTestServer(Deps{Ingest: fake})

	body := `{"session_id":"s1","slide_id":"slide-3","title":"Roadmap","content":"Q3 milestones"}`
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/slide", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleIngestSlide(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if fake.syncedScope != "slide-3" {
		t.Errorf("expected scope slide-3, got %q", fake.syncedScope)
	}
	if len(fake.syncedDocs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(fake.syncedDocs))
	}
	if got := fake.syncedDocs[0].Path; got != "slide:slide-3:Roadmap" {
		t.Errorf("document path: got %q", got)
	}
	if fake.syncedDocs[0].Scope != "slide-3" {
		t.Errorf("document scope: got %q", fake.syncedDocs[0].Scope)
	}

	var resp slideIngestResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ChunksCreated != 1 {
		t.Errorf("chunks_created: got %d", resp.ChunksCreated)
	}
}

func TestHandleIngestSlide_MissingFields(t *testing.T) {
	t.Parallel()

	s := newTestServer(Deps{Ingest: &fakeIngest{}})
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/slide",
		strings.NewReader(`{"session_id":"s1","content":"text"}`))
	w := httptest.NewRecorder()

	s.handleIngestSlide(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without slide_id, got %d", w.Code)
	}
}

func TestHandleIngestStatus_ViaMux(t *testing.T) {
	t.Parallel()

	fake := &fakeIngest{status: ingest.Status{
		SessionID:     "s1",
		State:         ingest.StateReady,
		TotalFiles:    3,
		ChunksCreated: 12,
	}}
	s := newTestServer(Deps{Ingest: fake})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ingest/status/{session_id}", s.handleIngestStatus)

	req := httptest.NewRequest(http.MethodGet, "/api/ingest/status/s1", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp ingest.Status
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != ingest.StateReady || resp.ChunksCreated != 12 {
		t.Errorf("unexpected status: %+v", resp)
	}
}

func TestHandleDeleteSession(t *testing.T) {
	t.Parallel()

	fake := &fakeIngest{}
	s := newTestServer(Deps{Ingest: fake})

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/session/{session_id}", s.handleDeleteSession)

	req := httptest.NewRequest(http.MethodDelete, "/api/session/s1", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "s1" {
		t.Errorf("expected delete of s1, got %v", fake.deleted)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "deleted" {
		t.Errorf("expected status deleted, got %q", resp["status"])
	}
}
