package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubGenerator struct {
	answer string
	err    error
	system string
}

func (s *stubGenerator) Generate(_ context.Context, system, _ string) (string, error) {
	s.system = system
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func newTestSearcher(t *testing.T, gen answerGenerator, handler http.HandlerFunc) *Searcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := New(gen, nil)
	s.baseURL = srv.URL
	return s
}

func ddgHandler(t *testing.T, payload map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("want format=json, got %q", got)
		}
		json.NewEncoder(w).Encode(payload)
	}
}

func Test_Searcher_SearchParsesAbstractAndTopics(t *testing.T) {
	t.Parallel()

	s := newTestSearcher(t, nil, ddgHandler(t, map[string]any{
		"Heading":      "Kubernetes",
		"AbstractText": "Kubernetes is a container orchestrator.",
		"AbstractURL":  "https://kubernetes.io",
		"RelatedTopics": []map[string]any{
			{"Text": "Helm - a package manager", "FirstURL": "https://helm.sh"},
			{"Text": ""},
			{"Text": "kubectl - the CLI", "FirstURL": "https://kubernetes.io/docs"},
		},
	}))

	results, err := s.Search(context.Background(), "kubernetes", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("want 3 results, got %d", len(results))
	}
	if results[0].Title != "Kubernetes" || results[0].URL != "https://kubernetes.io" {
		t.Errorf("unexpected abstract result: %+v", results[0])
	}
	if results[1].Title != "Helm" {
		t.Errorf("topic title not extracted: %+v", results[1])
	}
}

func Test_Searcher_SearchRespectsMaxResults(t *testing.T) {
	t.Parallel()

	topics := make([]map[string]any, 10)
	for i := range topics {
		topics[i] = map[string]any{"Text": "topic - text", "FirstURL": "https://example.com"}
	}
	s := newTestSearcher(t, nil, ddgHandler(t, map[string]any{"RelatedTopics": topics}))

	results, err := s.Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("want 3 results, got %d", len(results))
	}
}

func Test_Searcher_SummarizeUsesResults(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{answer: " summarized answer "}
	s := newTestSearcher(t, gen, ddgHandler(t, map[string]any{
		"Heading":      "Topic",
		"AbstractText": "The details.",
	}))

	answer, results, err := s.SearchAndSummarize(context.Background(), "query", "slide about topic", "en", "")
	if err != nil {
		t.Fatalf("SearchAndSummarize failed: %v", err)
	}
	if answer != "summarized answer" {
		t.Errorf("unexpected answer %q", answer)
	}
	if len(results) != 1 {
		t.Errorf("want 1 result, got %d", len(results))
	}
	for _, want := range []string{"The details.", "slide about topic", "Respond in English"} {
		if !strings.Contains(gen.system, want) {
			t.Errorf("summarization prompt missing %q", want)
		}
	}
}

func Test_Searcher_SummarizeFallsBackToSnippet(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{err: errors.New("model offline")}
	s := newTestSearcher(t, gen, ddgHandler(t, map[string]any{
		"Heading":      "Topic",
		"AbstractText": "The snippet.",
	}))

	answer, _, err := s.SearchAndSummarize(context.Background(), "q", "", "en", "")
	if err != nil {
		t.Fatalf("generator failure must not fail the search: %v", err)
	}
	if answer != "The snippet." {
		t.Errorf("want snippet fallback, got %q", answer)
	}
}

func Test_Searcher_NoResultsAsksGeneratorDirectly(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{answer: "from general knowledge"}
	s := newTestSearcher(t, gen, ddgHandler(t, map[string]any{}))

	answer, results, err := s.SearchAndSummarize(context.Background(), "obscure query", "", "en", "")
	if err != nil {
		t.Fatalf("SearchAndSummarize failed: %v", err)
	}
	if answer != "from general knowledge" {
		t.Errorf("unexpected answer %q", answer)
	}
	if len(results) != 1 || results[0].Title != "AI Web Search" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func Test_TopicTitle(t *testing.T) {
	t.Parallel()

	if got := topicTitle("Helm - a package manager"); got != "Helm" {
		t.Errorf("want Helm, got %q", got)
	}
	long := strings.Repeat("x", 100)
	if got := topicTitle(long); len(got) != 60 {
		t.Errorf("long title not truncated: %d chars", len(got))
	}
}
