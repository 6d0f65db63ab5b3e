package ingest

import (
	"context"
	"testing"

	"github.com/consultdeck/consultdeck/internal/rag"
)

func Test_Tracker_Lifecycle(t *testing.T) {
	t.Parallel()

	tr := NewTracker()

	if got := tr.Get("s"); got.State != StateNotStarted {
		t.Fatalf("unknown session: want %q, got %q", StateNotStarted, got.State)
	}

	tr.Begin("s", 3, "Processing 3 documents")
	if got := tr.Get("s"); got.State != StateProcessing || got.TotalFiles != 3 {
		t.Errorf("after Begin: %+v", got)
	}

	tr.Ready("s", 3, 42, "done")
	got := tr.Get("s")
	if got.State != StateReady || got.ChunksCreated != 42 {
		t.Errorf("after Ready: %+v", got)
	}
	if got.FilesProcessed != 3 {
		t.Errorf("after Ready: want 3 files processed, got %d", got.FilesProcessed)
	}

	tr.Begin("s", 1, "re-upload")
	if got := tr.Get("s"); got.State != StateProcessing || got.FilesProcessed != 0 {
		t.Errorf("re-upload should restart the cycle: %+v", got)
	}

	tr.Fail("s", 1, 0, "Error: boom")
	if got := tr.Get("s"); got.State != StateError || got.FilesProcessed != 0 {
		t.Errorf("after Fail: %+v", got)
	}

	tr.Clear("s")
	if got := tr.Get("s"); got.State != StateNotStarted {
		t.Errorf("after Clear: %+v", got)
	}
}

func Test_Service_BackgroundIngest(t *testing.T) {
	t.Parallel()

	idx := rag.NewMemoryIndex()
	p := newTestPipeline(t, &countingEmbedder{}, idx)
	svc, err := NewService(p, idx, NewTracker(), nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	st := svc.StartIngest("s", []Document{{Path: "a.md", Content: "content a"}}, "")
	if st.State != StateProcessing {
		t.Errorf("immediate status: want %q, got %q", StateProcessing, st.State)
	}

	svc.Wait()
	st = svc.Status("s")
	if st.State != StateReady {
		t.Fatalf("final status: want %q, got %q (%s)", StateReady, st.State, st.Message)
	}
	if st.ChunksCreated != 1 {
		t.Errorf("want 1 chunk created, got %d", st.ChunksCreated)
	}
	if st.FilesProcessed != 1 {
		t.Errorf("want 1 file processed in ready snapshot, got %d", st.FilesProcessed)
	}
	if n := indexedCount(t, idx, "s"); n != 1 {
		t.Errorf("want 1 indexed chunk, got %d", n)
	}
}

func Test_Service_BackgroundFailureSetsError(t *testing.T) {
	t.Parallel()

	idx := rag.NewMemoryIndex()
	p := newTestPipeline(t, &countingEmbedder{failFrom: 1}, idx)
	svc, err := NewService(p, idx, NewTracker(), nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	svc.StartIngest("s", []Document{{Path: "a.md", Content: "content"}}, "")
	svc.Wait()

	st := svc.Status("s")
	if st.State != StateError {
		t.Fatalf("want %q, got %q", StateError, st.State)
	}
	if st.Message == "" {
		t.Error("error status should carry a message")
	}
}

func Test_Service_DeleteSession(t *testing.T) {
	t.Parallel()

	idx := rag.NewMemoryIndex()
	p := newTestPipeline(t, &countingEmbedder{}, idx)
	svc, err := NewService(p, idx, NewTracker(), nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	if _, err := svc.IngestSync(context.Background(), "s", []Document{{Path: "a.md", Content: "content"}}, ""); err != nil {
		t.Fatalf("IngestSync failed: %v", err)
	}
	if err := svc.DeleteSession(context.Background(), "s"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if n := indexedCount(t, idx, "s"); n != 0 {
		t.Errorf("deleted session still has %d chunks", n)
	}
	if st := svc.Status("s"); st.State != StateNotStarted {
		t.Errorf("deleted session status: want %q, got %q", StateNotStarted, st.State)
	}

	// Deleting again is a no-op.
	if err := svc.DeleteSession(context.Background(), "s"); err != nil {
		t.Fatalf("second DeleteSession failed: %v", err)
	}
}
