package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/consultdeck/consultdeck/internal/rag"
)

// countingEmbedder returns unit vectors and can be armed to fail from a given
// call onward.
type countingEmbedder struct {
	calls    int
	failFrom int // 0 = never fail
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.failFrom > 0 && e.calls >= e.failFrom {
		return nil, errors.New("embedding quota exhausted")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func newTestPipeline(t *testing.T, emb rag.Embedder, idx rag.ContentIndex) *Pipeline {
	t.Helper()
	p, err := NewPipeline(emb, idx, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return p
}

func indexedCount(t *testing.T, idx rag.ContentIndex, sessionID string) int {
	t.Helper()
	hits, err := idx.Query(context.Background(), sessionID, []float32{1, 0}, []string{rag.ScopeGlobal}, 10000)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	return len(hits)
}

func Test_ChunkID_DeterministicUUID(t *testing.T) {
	t.Parallel()

	a := ChunkID("session", "doc.md", 3)
	b := ChunkID("session", "doc.md", 3)
	if a != b {
		t.Errorf("chunk ID not deterministic: %q vs %q", a, b)
	}
	if a == ChunkID("session", "doc.md", 4) {
		t.Error("different chunk indexes collided")
	}
	if a == ChunkID("other", "doc.md", 3) {
		t.Error("different sessions collided")
	}
	if len(strings.Split(a, "-")) != 5 {
		t.Errorf("chunk ID is not UUID-shaped: %q", a)
	}
}

func Test_Pipeline_IngestIndexesChunks(t *testing.T) {
	t.Parallel()

	idx := rag.NewMemoryIndex()
	p := newTestPipeline(t, &countingEmbedder{}, idx)

	n, err := p.Ingest(context.Background(), "s", []Document{
		{Path: "readme.md", Content: "Some documentation about the product."},
		{Path: "notes.txt", Content: "Extra notes.", Scope: "slide-1"},
	}, "")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if n != 2 {
		t.Errorf("want 2 chunks committed, got %d", n)
	}

	// Unscoped documents default to global; explicitly scoped ones keep theirs.
	global, err := idx.Query(context.Background(), "s", []float32{1, 0}, []string{rag.ScopeGlobal}, 10)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(global) != 1 || global[0].Source != "readme.md" {
		t.Errorf("unexpected global chunks: %+v", global)
	}
	scoped, err := idx.Query(context.Background(), "s", []float32{1, 0}, []string{"slide-1"}, 10)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Source != "notes.txt" {
		t.Errorf("unexpected scoped chunks: %+v", scoped)
	}
}

func Test_Pipeline_ReingestOverwrites(t *testing.T) {
	t.Parallel()

	idx := rag.NewMemoryIndex()
	p := newTestPipeline(t, &countingEmbedder{}, idx)
	docs := []Document{{Path: "doc.md", Content: "version one"}}

	for i := 0; i < 3; i++ {
		if _, err := p.Ingest(context.Background(), "s", docs, ""); err != nil {
			t.Fatalf("Ingest round %d failed: %v", i, err)
		}
	}
	if n := indexedCount(t, idx, "s"); n != 1 {
		t.Errorf("re-ingestion duplicated chunks: want 1, got %d", n)
	}
}

func Test_Pipeline_PartialFailureKeepsCommittedPrefix(t *testing.T) {
	t.Parallel()

	idx := rag.NewMemoryIndex()
	// First embed call (batch of 100) succeeds, second fails.
	p := newTestPipeline(t, &countingEmbedder{failFrom: 2}, idx)

	docs := make([]Document, 150)
	for i := range docs {
		docs[i] = Document{
			Path:    fmt.Sprintf("doc-%03d.md", i),
			Content: fmt.Sprintf("short document %d", i),
		}
	}

	committed, err := p.Ingest(context.Background(), "s", docs, "")
	if err == nil {
		t.Fatal("want error when an embedding batch fails")
	}
	if committed != 100 {
		t.Errorf("want 100 committed chunks before the failure, got %d", committed)
	}
	if n := indexedCount(t, idx, "s"); n != 100 {
		t.Errorf("index should keep the committed prefix: want 100, got %d", n)
	}
}

func Test_Pipeline_EmptyDocuments(t *testing.T) {
	t.Parallel()

	emb := &countingEmbedder{}
	p := newTestPipeline(t, emb, rag.NewMemoryIndex())

	n, err := p.Ingest(context.Background(), "s", []Document{{Path: "empty.md", Content: "   \n\n"}}, "")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if n != 0 {
		t.Errorf("want 0 chunks for whitespace content, got %d", n)
	}
	if emb.calls != 0 {
		t.Errorf("embedder should not be called for empty input, got %d calls", emb.calls)
	}
}
