// Package websearch answers questions that indexed content cannot: it pulls
// instant-answer results from DuckDuckGo and summarizes them with the
// configured answer generator. No API key is required.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultMaxResults caps the result list handed to the summarizer.
const defaultMaxResults = 5

// answerGenerator matches the provider package's AnswerGenerator.
type answerGenerator interface {
	Generate(ctx context.Context, system, question string) (string, error)
}

// Result is one web search hit.
type Result struct {
	// Title is the result heading.
	Title string `json:"title"`

	// URL is the result link.
	URL string `json:"url"`

	// Snippet is the result text used for summarization.
	Snippet string `json:"snippet"`
}

// Searcher queries DuckDuckGo and summarizes results for spoken delivery.
type Searcher struct {
	generator answerGenerator
	baseURL   string
	client    *http.Client
	log       *slog.Logger
}

// New constructs a Searcher. generator may be nil, in which case answers fall
// back to the top snippet.
func New(generator answerGenerator, log *slog.Logger) *Searcher {
	if log == nil {
		log = slog.Default()
	}
	return &Searcher{
		generator: generator,
		baseURL:   "https://api.duckduckgo.com",
		client:    &http.Client{Timeout: 15 * time.Second},
		log:       log,
	}
}

// ddgResponse is the subset of the DuckDuckGo instant answer payload we use.
type ddgResponse struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search returns up to maxResults instant-answer hits for the query.
func (s *Searcher) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("websearch: create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("websearch: HTTP %d", resp.StatusCode)
	}

	var body ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("websearch: decode response: %w", err)
	}

	var results []Result
	if body.AbstractText != "" {
		title := body.Heading
		if title == "" {
			title = query
		}
		results = append(results, Result{Title: title, URL: body.AbstractURL, Snippet: body.AbstractText})
	}
	for _, topic := range body.RelatedTopics {
		if len(results) >= maxResults {
			break
		}
		if topic.Text == "" {
			continue
		}
		results = append(results, Result{Title: topicTitle(topic.Text), URL: topic.FirstURL, Snippet: topic.Text})
	}
	return results, nil
}

// SearchAndSummarize runs a search and produces a spoken-length summary tied
// to the current slide. When the search yields nothing, the generator answers
// directly; when the generator fails, the top snippet stands in.
func (s *Searcher) SearchAndSummarize(ctx context.Context, query, slideContext, language, tone string) (string, []Result, error) {
	results, err := s.Search(ctx, query, defaultMaxResults)
	if err != nil {
		s.log.Warn("web search failed, falling back to generator",
			slog.String("query", query),
			slog.String("error", err.Error()))
		results = nil
	}

	if len(results) == 0 {
		if s.generator == nil {
			return "No web results found for this query.", nil, nil
		}
		answer, genErr := s.generator.Generate(ctx, searchSystemPrompt(slideContext, language, tone, nil), query)
		if genErr != nil {
			return "", nil, fmt.Errorf("websearch: no results and generation failed: %w", genErr)
		}
		return strings.TrimSpace(answer), []Result{{Title: "AI Web Search", Snippet: answer}}, nil
	}

	if s.generator == nil {
		return results[0].Snippet, results, nil
	}
	answer, genErr := s.generator.Generate(ctx, searchSystemPrompt(slideContext, language, tone, results), query)
	if genErr != nil {
		s.log.Warn("summarization failed, returning top snippet",
			slog.String("query", query),
			slog.String("error", genErr.Error()))
		return results[0].Snippet, results, nil
	}
	return strings.TrimSpace(answer), results, nil
}

// searchSystemPrompt assembles the summarization prompt.
func searchSystemPrompt(slideContext, language, tone string, results []Result) string {
	var b strings.Builder
	b.WriteString("You are a presentation assistant answering an audience question using live web search results.\n")
	if slideContext != "" {
		fmt.Fprintf(&b, "The presenter is currently discussing: %s\n", slideContext)
	}
	if len(results) > 0 {
		b.WriteString("\nSearch results:\n")
		for i, r := range results {
			fmt.Fprintf(&b, "[%d] %s\n%s\n", i+1, r.Title, r.Snippet)
		}
	}
	b.WriteString("\nAnswer in a few sentences suitable for reading aloud.\n")
	if tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", tone)
	}
	if language == "hi" {
		b.WriteString("Respond in Hindi (Devanagari script). Keep technical terms in English.\n")
	} else {
		b.WriteString("Respond in English.\n")
	}
	return b.String()
}

// topicTitle extracts a short title from a related-topic text, which arrives
// as "Title - description".
func topicTitle(text string) string {
	if i := strings.Index(text, " - "); i > 0 {
		return text[:i]
	}
	if len(text) > 60 {
		return text[:60]
	}
	return text
}
