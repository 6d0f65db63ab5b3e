package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/consultdeck/consultdeck/internal/rag"
)

// defaultJobTimeout bounds a single background ingestion job.
const defaultJobTimeout = 10 * time.Minute

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "consultdeck",
		Subsystem: "ingest",
		Name:      "jobs_total",
		Help:      "Background ingestion jobs by outcome.",
	}, []string{"outcome"})

	chunksIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "consultdeck",
		Subsystem: "ingest",
		Name:      "chunks_indexed_total",
		Help:      "Chunks committed to the content index.",
	})
)

// Service owns background ingestion jobs and session lifecycle. Uploads are
// accepted immediately and processed asynchronously; callers poll Status.
type Service struct {
	pipeline   *Pipeline
	index      rag.ContentIndex
	tracker    *Tracker
	log        *slog.Logger
	jobTimeout time.Duration

	wg sync.WaitGroup
}

// NewService constructs an ingestion Service.
func NewService(pipeline *Pipeline, index rag.ContentIndex, tracker *Tracker, log *slog.Logger) (*Service, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("ingest: pipeline is required")
	}
	if index == nil {
		return nil, fmt.Errorf("ingest: content index is required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("ingest: tracker is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pipeline:   pipeline,
		index:      index,
		tracker:    tracker,
		log:        log,
		jobTimeout: defaultJobTimeout,
	}, nil
}

// StartIngest accepts an upload and kicks off a background job for it. The
// returned status is the immediate processing snapshot; callers poll Status
// for completion. The job owns its own context so an upload survives the
// HTTP request that delivered it.
func (s *Service) StartIngest(sessionID string, docs []Document, scope string) Status {
	s.tracker.Begin(sessionID, len(docs), fmt.Sprintf("Processing %d documents", len(docs)))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(sessionID, docs, scope)
	}()

	return s.tracker.Get(sessionID)
}

func (s *Service) run(sessionID string, docs []Document, scope string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	start := time.Now()
	committed, err := s.pipeline.Ingest(ctx, sessionID, docs, scope)
	chunksIndexed.Add(float64(committed))

	if err != nil {
		jobsTotal.WithLabelValues("error").Inc()
		s.tracker.Fail(sessionID, len(docs), committed, "Error: "+err.Error())
		s.log.Error("ingestion job failed",
			slog.String("session_id", sessionID),
			slog.Int("committed", committed),
			slog.String("error", err.Error()))
		return
	}

	jobsTotal.WithLabelValues("ok").Inc()
	s.tracker.Ready(sessionID, len(docs), committed,
		fmt.Sprintf("Indexed %d chunks from %d documents", committed, len(docs)))
	s.log.Info("ingestion job finished",
		slog.String("session_id", sessionID),
		slog.Int("documents", len(docs)),
		slog.Int("chunks", committed),
		slog.Duration("elapsed", time.Since(start)))
}

// IngestSync indexes documents inline and returns the committed chunk count.
// Used for small payloads (single slide notes) and the CLI, where the caller
// wants the result rather than a poll loop.
func (s *Service) IngestSync(ctx context.Context, sessionID string, docs []Document, scope string) (int, error) {
	committed, err := s.pipeline.Ingest(ctx, sessionID, docs, scope)
	chunksIndexed.Add(float64(committed))
	return committed, err
}

// Status reports the session's current ingestion state.
func (s *Service) Status(sessionID string) Status {
	return s.tracker.Get(sessionID)
}

// DeleteSession drops the session's index namespace and forgets its status.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.index.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("ingest: failed to delete session %q: %w", sessionID, err)
	}
	s.tracker.Clear(sessionID)
	s.log.Info("session deleted", slog.String("session_id", sessionID))
	return nil
}

// Wait blocks until all in-flight background jobs finish. Called on shutdown
// and by tests.
func (s *Service) Wait() {
	s.wg.Wait()
}
