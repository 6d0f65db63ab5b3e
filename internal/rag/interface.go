// Package rag defines the retrieval core of consultdeck: per-session vector
// indexing, embedding, and scoped similarity retrieval. Concrete index
// implementations (Qdrant, in-memory) satisfy the ContentIndex interface so
// the answering layer never depends on a specific backend.
//
// Isolation is structural: every session owns a physically separate index
// namespace derived from a hash of its session ID. A query against one
// session can never observe vectors written under another.
package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// ScopeGlobal is the scope tag for content available to every active context
// within a session (uploaded documentation, repository files).
const ScopeGlobal = "global"

// Chunk is a bounded piece of a source document together with the metadata
// stored alongside its embedding.
type Chunk struct {
	// ID is the deterministic identifier of the chunk. Re-ingesting the same
	// document path produces the same IDs, so upserts overwrite rather than
	// duplicate.
	ID string

	// Text is the chunk content.
	Text string

	// Source is the originating document path or label.
	Source string

	// Scope tags the chunk with the active context it belongs to, or
	// ScopeGlobal for session-wide knowledge.
	Scope string

	// Index is the zero-based chunk position within its source document.
	Index int
}

// Hit is a chunk returned from an index query together with its cosine
// distance from the query vector. Lower distance means more similar.
type Hit struct {
	Chunk

	// Distance is the cosine distance in [0, 2].
	Distance float64
}

// RetrievedChunk is the caller-facing result of a retrieval: content plus a
// similarity score of 1 - cosine distance, rounded to 3 decimals and clamped
// to [0, 1].
type RetrievedChunk struct {
	// Content is the chunk text.
	Content string `json:"content"`

	// Source is the originating document path or label.
	Source string `json:"source"`

	// Scope is the scope tag the chunk was indexed under.
	Scope string `json:"scope"`

	// Similarity is 1 - cosine distance, in [0, 1], rounded to 3 decimals.
	Similarity float64 `json:"similarity"`
}

// ContentIndex is the per-session vector store. Implementations must be safe
// for concurrent use: ingestion writes and query reads share the index.
type ContentIndex interface {
	// Upsert stores or overwrites chunks keyed by their IDs in the session's
	// namespace, creating the namespace on first use. The embeddings slice is
	// parallel to chunks. Implementations batch internally so a single call
	// never produces an unbounded request.
	Upsert(ctx context.Context, sessionID string, chunks []Chunk, embeddings [][]float32) error

	// Query returns the topK nearest chunks whose scope is in scopes, ranked
	// by ascending distance. topK is clamped to [1, total vectors] so queries
	// against near-empty namespaces succeed. A missing namespace yields zero
	// hits, not an error.
	Query(ctx context.Context, sessionID string, queryVector []float32, scopes []string, topK int) ([]Hit, error)

	// Delete removes the session's namespace. Deleting a namespace that does
	// not exist is a no-op.
	Delete(ctx context.Context, sessionID string) error

	// Close releases any resources held by the index.
	Close() error
}

// Embedder converts text batches into dense vectors, one per input text, in
// input order. Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever answers scoped similarity queries for a session.
type Retriever interface {
	// Retrieve returns the topK most relevant chunks for question, drawn from
	// the union of activeScope and ScopeGlobal, ordered by descending
	// similarity.
	Retrieve(ctx context.Context, sessionID, question, activeScope string, topK int) ([]RetrievedChunk, error)
}

// CollectionName maps a session ID to its stable index namespace. Session IDs
// are free-form strings; the namespace must satisfy backend naming rules, so
// it is derived from a hash rather than the raw ID.
func CollectionName(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return "cd-" + hex.EncodeToString(sum[:8])
}

// scopeSet builds a membership set from a scope filter list.
func scopeSet(scopes []string) map[string]bool {
	set := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		set[s] = true
	}
	return set
}
