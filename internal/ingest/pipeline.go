// Package ingest turns uploaded documents into indexed vectors: split,
// embed, upsert. Ingestion for a whole upload runs as one background job per
// session, with progress reported through the Tracker.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/consultdeck/consultdeck/internal/rag"
	"github.com/consultdeck/consultdeck/internal/splitter"
)

// embedBatchSize is the number of chunks embedded and upserted per round
// trip. A batch is also the unit of failure: chunks committed before a failed
// batch stay indexed.
const embedBatchSize = 100

// chunkNamespace seeds deterministic chunk IDs. Fixed so re-ingesting a
// document yields the same point IDs and overwrites instead of duplicating.
var chunkNamespace = uuid.MustParse("7a1d2c8e-4b6f-4f3a-9e0d-5c8b1a2f3e4d")

// ChunkID derives the stable identifier for one chunk of one document within
// a session. IDs are UUIDs because vector store point IDs must be.
func ChunkID(sessionID, path string, index int) string {
	return uuid.NewSHA1(chunkNamespace, fmt.Appendf(nil, "%s|%s|%d", sessionID, path, index)).String()
}

// Document is one uploaded file queued for indexing.
type Document struct {
	// Path is the document's path or label; it becomes the source attribution
	// on every chunk.
	Path string `json:"path"`

	// Content is the full document text.
	Content string `json:"content"`

	// Extension is the file extension including the dot (e.g. ".md").
	Extension string `json:"extension"`

	// Scope optionally overrides the upload-level scope for this document.
	Scope string `json:"scope,omitempty"`
}

// PipelineConfig holds the chunking parameters for a Pipeline.
type PipelineConfig struct {
	// ChunkSize is the maximum chunk length in characters (default: 800).
	ChunkSize int

	// ChunkOverlap is the overlap carried between chunks (default: 150).
	ChunkOverlap int
}

// Pipeline converts documents into indexed chunks. It is stateless between
// calls and safe for concurrent use across sessions.
type Pipeline struct {
	embedder     rag.Embedder
	index        rag.ContentIndex
	chunkSize    int
	chunkOverlap int
	log          *slog.Logger
}

// NewPipeline constructs a Pipeline.
func NewPipeline(embedder rag.Embedder, index rag.ContentIndex, cfg *PipelineConfig, log *slog.Logger) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingest: embedder is required")
	}
	if index == nil {
		return nil, fmt.Errorf("ingest: content index is required")
	}
	if cfg == nil {
		cfg = &PipelineConfig{}
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 800
	}
	overlap := cfg.ChunkOverlap
	if overlap <= 0 {
		overlap = 150
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		embedder:     embedder,
		index:        index,
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
		log:          log,
	}, nil
}

// Ingest splits, embeds, and indexes docs for the session. defaultScope
// applies to documents that carry no scope of their own; empty means global.
// It returns the number of chunks committed to the index. On error the count
// covers only the batches that were fully upserted before the failure.
func (p *Pipeline) Ingest(ctx context.Context, sessionID string, docs []Document, defaultScope string) (int, error) {
	if defaultScope == "" {
		defaultScope = rag.ScopeGlobal
	}

	var all []rag.Chunk
	for _, doc := range docs {
		scope := doc.Scope
		if scope == "" {
			scope = defaultScope
		}
		for _, c := range splitter.Split(doc.Content, p.chunkSize, p.chunkOverlap) {
			all = append(all, rag.Chunk{
				ID:     ChunkID(sessionID, doc.Path, c.Index),
				Text:   c.Text,
				Source: doc.Path,
				Scope:  scope,
				Index:  c.Index,
			})
		}
	}
	if len(all) == 0 {
		return 0, nil
	}

	committed := 0
	for start := 0; start < len(all); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(all) {
			end = len(all)
		}
		batch := all[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return committed, fmt.Errorf("ingest: embedding batch %d failed: %w", start/embedBatchSize, err)
		}
		if err := p.index.Upsert(ctx, sessionID, batch, vectors); err != nil {
			return committed, fmt.Errorf("ingest: indexing batch %d failed: %w", start/embedBatchSize, err)
		}
		committed = end

		p.log.Debug("ingested batch",
			slog.String("session_id", sessionID),
			slog.Int("committed", committed),
			slog.Int("total", len(all)))
	}
	return committed, nil
}
