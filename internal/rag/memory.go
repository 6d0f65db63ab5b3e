package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process ContentIndex backed by brute-force cosine
// search. It backs tests and single-node deployments that run without a
// vector database (INDEX_PROVIDER=memory).
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	byID    map[string]int
	chunks  []Chunk
	vectors [][]float32
}

// NewMemoryIndex constructs an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{collections: make(map[string]*memCollection)}
}

// Upsert implements ContentIndex. Chunks with known IDs are overwritten in
// place; new IDs are appended.
func (m *MemoryIndex) Upsert(_ context.Context, sessionID string, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("rag: %d chunks but %d embeddings", len(chunks), len(embeddings))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name := CollectionName(sessionID)
	col, ok := m.collections[name]
	if !ok {
		col = &memCollection{byID: make(map[string]int)}
		m.collections[name] = col
	}

	for i, c := range chunks {
		if at, exists := col.byID[c.ID]; exists {
			col.chunks[at] = c
			col.vectors[at] = embeddings[i]
			continue
		}
		col.byID[c.ID] = len(col.chunks)
		col.chunks = append(col.chunks, c)
		col.vectors = append(col.vectors, embeddings[i])
	}
	return nil
}

// Query implements ContentIndex.
func (m *MemoryIndex) Query(_ context.Context, sessionID string, queryVector []float32, scopes []string, topK int) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[CollectionName(sessionID)]
	if !ok || len(col.chunks) == 0 {
		return nil, nil
	}

	if topK < 1 {
		topK = 1
	}
	if topK > len(col.chunks) {
		topK = len(col.chunks)
	}

	want := scopeSet(scopes)
	hits := make([]Hit, 0, topK)
	for i, c := range col.chunks {
		if len(want) > 0 && !want[c.Scope] {
			continue
		}
		hits = append(hits, Hit{Chunk: c, Distance: cosineDistance(queryVector, col.vectors[i])})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Delete implements ContentIndex.
func (m *MemoryIndex) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, CollectionName(sessionID))
	return nil
}

// Close implements ContentIndex.
func (m *MemoryIndex) Close() error { return nil }

// cosineDistance returns 1 - cosine similarity. Vectors with zero magnitude
// are treated as maximally distant from everything.
func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
