package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// maxSources caps the number of source attributions returned with an answer.
const maxSources = 3

// answerGenerator produces a completion for a system prompt and question.
// Satisfied by the provider package's AnswerGenerator.
type answerGenerator interface {
	Generate(ctx context.Context, system, question string) (string, error)
}

// historyAppender records answered questions. Satisfied by the store package.
type historyAppender interface {
	Append(ctx context.Context, sessionID, question, answer string) error
}

// AnswerRequest carries everything needed to answer a question in context.
type AnswerRequest struct {
	// SessionID selects the session's index namespace.
	SessionID string

	// SlideID is the active scope; retrieval unions it with global content.
	SlideID string

	// SlideTitle and SlideContext describe what the presenter is currently
	// showing and are injected into the prompt verbatim.
	SlideTitle   string
	SlideContext string

	// Question is the audience question to answer.
	Question string

	// Language selects the response language ("en" or "hi"; default "en").
	Language string

	// Tone optionally overrides the default consultative tone.
	Tone string

	// TopK is the retrieval depth; values < 1 use the engine default.
	TopK int
}

// Source attributes part of an answer to an indexed document.
type Source struct {
	// Source is the document path or label.
	Source string `json:"source"`

	// Similarity is the retrieval score of the chunk drawn from this source.
	Similarity float64 `json:"similarity"`
}

// Answerer turns retrieval results into grounded answers. History recording
// is best effort: a failed write never fails the answer.
type Answerer struct {
	retriever Retriever
	generator answerGenerator
	history   historyAppender
	log       *slog.Logger
}

// NewAnswerer constructs an Answerer. history may be nil to disable Q&A
// recording.
func NewAnswerer(retriever Retriever, generator answerGenerator, history historyAppender, log *slog.Logger) (*Answerer, error) {
	if retriever == nil {
		return nil, fmt.Errorf("rag: retriever is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("rag: answer generator is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Answerer{retriever: retriever, generator: generator, history: history, log: log}, nil
}

// Answer retrieves context for the question and generates a grounded
// response. The returned sources are the highest-similarity attributions, at
// most maxSources of them.
func (a *Answerer) Answer(ctx context.Context, req AnswerRequest) (string, []Source, error) {
	chunks, err := a.retriever.Retrieve(ctx, req.SessionID, req.Question, req.SlideID, req.TopK)
	if err != nil {
		return "", nil, err
	}

	system := buildSystemPrompt(req, chunks)

	answer, err := a.generator.Generate(ctx, system, req.Question)
	if err != nil {
		return "", nil, fmt.Errorf("rag: answer generation failed: %w", err)
	}
	answer = strings.TrimSpace(answer)

	sources := make([]Source, 0, maxSources)
	for _, c := range chunks {
		if len(sources) == maxSources {
			break
		}
		sources = append(sources, Source{Source: c.Source, Similarity: c.Similarity})
	}

	if a.history != nil {
		if err := a.history.Append(ctx, req.SessionID, req.Question, answer); err != nil {
			a.log.Warn("failed to record answer history",
				slog.String("session_id", req.SessionID),
				slog.String("error", err.Error()))
		}
	}
	return answer, sources, nil
}

// buildSystemPrompt assembles the grounding context, presentation state, and
// style instructions into a single system prompt.
func buildSystemPrompt(req AnswerRequest, chunks []RetrievedChunk) string {
	var contextBlock string
	if len(chunks) == 0 {
		contextBlock = "No indexed content matched this question. Say so briefly and answer from general knowledge if you can."
	} else {
		parts := make([]string, 0, len(chunks))
		for i, c := range chunks {
			parts = append(parts, fmt.Sprintf("[%d] File: %s\n%s", i+1, c.Source, c.Content))
		}
		contextBlock = strings.Join(parts, "\n\n---\n\n")
	}

	language := "Respond in English."
	if req.Language == "hi" {
		language = "Respond in Hindi (Devanagari script). Keep technical terms in English."
	}

	tone := req.Tone
	if tone == "" {
		tone = "Confident, consultative, and concise. Speak as the presenter's knowledgeable colleague."
	}

	var b strings.Builder
	b.WriteString("You are a presentation assistant answering audience questions on behalf of the presenter.\n\n")
	if req.SlideTitle != "" {
		fmt.Fprintf(&b, "Current slide: %s\n", req.SlideTitle)
	}
	if req.SlideContext != "" {
		fmt.Fprintf(&b, "Slide context: %s\n", req.SlideContext)
	}
	b.WriteString("\nRelevant material from the presenter's documents:\n\n")
	b.WriteString(contextBlock)
	b.WriteString("\n\nInstructions:\n")
	b.WriteString("- Ground your answer in the material above; do not invent specifics.\n")
	b.WriteString("- Keep the answer short enough to read aloud, at most a few sentences.\n")
	fmt.Fprintf(&b, "- Tone: %s\n", tone)
	fmt.Fprintf(&b, "- %s\n", language)
	return b.String()
}
