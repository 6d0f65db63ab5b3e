package rag

import (
	"context"
	"fmt"
	"math"
)

// DefaultTopK is the number of chunks retrieved when the caller does not ask
// for a specific count.
const DefaultTopK = 5

// Engine implements Retriever on top of an Embedder and a ContentIndex.
type Engine struct {
	embedder Embedder
	index    ContentIndex
	topK     int
}

// NewEngine constructs a retrieval engine. topK is the default result count
// used when a query does not specify one; values < 1 fall back to DefaultTopK.
func NewEngine(embedder Embedder, index ContentIndex, topK int) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder is required")
	}
	if index == nil {
		return nil, fmt.Errorf("rag: content index is required")
	}
	if topK < 1 {
		topK = DefaultTopK
	}
	return &Engine{embedder: embedder, index: index, topK: topK}, nil
}

// Retrieve implements Retriever. The question is embedded once and matched
// against the union of the active scope and global content for the session.
func (e *Engine) Retrieve(ctx context.Context, sessionID, question, activeScope string, topK int) ([]RetrievedChunk, error) {
	if topK < 1 {
		topK = e.topK
	}

	vectors, err := e.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("rag: failed to embed question: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("rag: embedder returned no vector for question")
	}

	scopes := []string{ScopeGlobal}
	if activeScope != "" && activeScope != ScopeGlobal {
		scopes = []string{activeScope, ScopeGlobal}
	}

	hits, err := e.index.Query(ctx, sessionID, vectors[0], scopes, topK)
	if err != nil {
		return nil, fmt.Errorf("rag: query failed: %w", err)
	}

	chunks := make([]RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		chunks = append(chunks, RetrievedChunk{
			Content:    h.Text,
			Source:     h.Source,
			Scope:      h.Scope,
			Similarity: similarity(h.Distance),
		})
	}
	return chunks, nil
}

// similarity converts a cosine distance into the reported score:
// 1 - distance, rounded to 3 decimals, clamped to [0, 1].
func similarity(distance float64) float64 {
	s := math.Round((1-distance)*1000) / 1000
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
