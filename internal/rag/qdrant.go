package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/qdrant/go-client/qdrant"
)

// upsertBatchSize caps the number of points per Qdrant upsert request.
const upsertBatchSize = 100

// QdrantConfig holds connection parameters for a Qdrant instance. Collections
// are not configured here: each session gets its own, named by CollectionName.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// VectorSize is the dimensionality of the embeddings stored per session.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantIndex implements ContentIndex backed by a Qdrant instance, one
// collection per session. Collections are created lazily on first upsert.
type QdrantIndex struct {
	client *qdrant.Client
	cfg    *QdrantConfig

	// mu guards ready, the set of collections known to exist. Only lazy
	// collection creation takes this lock; queries and upserts against
	// existing collections run concurrently.
	mu    sync.Mutex
	ready map[string]bool
}

// NewQdrantIndex creates a QdrantIndex. No collections are touched until the
// first session writes.
func NewQdrantIndex(cfg *QdrantConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	return &QdrantIndex{client: client, cfg: cfg, ready: make(map[string]bool)}, nil
}

// Client exposes the underlying gRPC client for health checks.
func (s *QdrantIndex) Client() *qdrant.Client { return s.client }

// ensureCollection creates the session's collection if it does not already
// exist. Safe for concurrent callers.
func (s *QdrantIndex) ensureCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready[name] {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.cfg.VectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("qdrant: failed to create collection %q: %w", name, err)
		}
	}
	s.ready[name] = true
	return nil
}

// Upsert implements ContentIndex. Points are written in batches so a large
// document set never produces an oversized gRPC request.
func (s *QdrantIndex) Upsert(ctx context.Context, sessionID string, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("qdrant: %d chunks but %d embeddings", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil
	}

	name := CollectionName(sessionID)
	if err := s.ensureCollection(ctx, name); err != nil {
		return err
	}

	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			c := chunks[i]
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(c.ID),
				Vectors: qdrant.NewVectors(embeddings[i]...),
				Payload: qdrant.NewValueMap(map[string]any{
					"content":     c.Text,
					"source":      c.Source,
					"scope":       c.Scope,
					"chunk_index": int64(c.Index),
				}),
			})
		}

		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("qdrant: upsert batch %d failed: %w", start/upsertBatchSize, err)
		}
	}
	return nil
}

// Query implements ContentIndex. topK is clamped to the collection's point
// count so queries against sparse sessions still succeed.
func (s *QdrantIndex) Query(ctx context.Context, sessionID string, queryVector []float32, scopes []string, topK int) ([]Hit, error) {
	name := CollectionName(sessionID)

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		return nil, nil
	}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{CollectionName: name})
	if err != nil {
		return nil, fmt.Errorf("qdrant: count failed: %w", err)
	}
	if count == 0 {
		return nil, nil
	}
	limit := uint64(topK)
	if limit < 1 {
		limit = 1
	}
	if limit > count {
		limit = count
	}

	query := &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(scopes) > 0 {
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatchKeywords("scope", scopes...),
			},
		}
	}

	results, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("qdrant: query failed: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		h := Hit{
			Chunk: Chunk{ID: r.Id.GetUuid()},
			// Qdrant reports cosine similarity as the score.
			Distance: 1 - float64(r.Score),
		}
		if p := r.Payload; p != nil {
			if v, ok := p["content"]; ok {
				h.Text = v.GetStringValue()
			}
			if v, ok := p["source"]; ok {
				h.Source = v.GetStringValue()
			}
			if v, ok := p["scope"]; ok {
				h.Scope = v.GetStringValue()
			}
			if v, ok := p["chunk_index"]; ok {
				h.Index = int(v.GetIntegerValue())
			}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Delete implements ContentIndex. Dropping the collection discards every
// vector the session ever indexed.
func (s *QdrantIndex) Delete(ctx context.Context, sessionID string) error {
	name := CollectionName(sessionID)

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("qdrant: failed to delete collection %q: %w", name, err)
	}

	s.mu.Lock()
	delete(s.ready, name)
	s.mu.Unlock()
	return nil
}

// Close releases the gRPC connection.
func (s *QdrantIndex) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("qdrant: failed to close client: %w", err)
	}
	return nil
}
