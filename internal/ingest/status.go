package ingest

import "sync"

// State is the lifecycle position of a session's ingestion job.
type State string

// Ingestion states. A session moves not_started -> processing -> ready or
// error; a new upload restarts the cycle from processing.
const (
	StateNotStarted State = "not_started"
	StateProcessing State = "processing"
	StateReady      State = "ready"
	StateError      State = "error"
)

// Status is the queryable snapshot of a session's ingestion progress.
type Status struct {
	// SessionID identifies the session.
	SessionID string `json:"session_id"`

	// State is the current lifecycle state.
	State State `json:"status"`

	// TotalFiles is the number of documents in the current upload.
	TotalFiles int `json:"total_files"`

	// FilesProcessed is the number of documents fully indexed. Zero until
	// the job reaches a terminal state; equals TotalFiles on success.
	FilesProcessed int `json:"files_processed"`

	// ChunksCreated is the number of chunks committed to the index.
	ChunksCreated int `json:"chunks_created"`

	// Message is a human-readable progress line.
	Message string `json:"message"`
}

// Tracker holds per-session ingestion status in memory. Writes are
// last-write-wins; by convention only the session's active ingestion job
// writes its status. Safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{statuses: make(map[string]Status)}
}

// Begin marks the session as processing a new upload.
func (t *Tracker) Begin(sessionID string, totalFiles int, message string) {
	t.set(Status{SessionID: sessionID, State: StateProcessing, TotalFiles: totalFiles, Message: message})
}

// Progress updates the processing message without changing state.
func (t *Tracker) Progress(sessionID, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.statuses[sessionID]
	if !ok {
		s = Status{SessionID: sessionID, State: StateProcessing}
	}
	s.Message = message
	t.statuses[sessionID] = s
}

// Ready marks the session's upload as fully indexed.
func (t *Tracker) Ready(sessionID string, totalFiles, chunks int, message string) {
	t.set(Status{
		SessionID:      sessionID,
		State:          StateReady,
		TotalFiles:     totalFiles,
		FilesProcessed: totalFiles,
		ChunksCreated:  chunks,
		Message:        message,
	})
}

// Fail marks the session's upload as failed. FilesProcessed stays zero: a
// failed job gives no per-file attribution for the committed chunk prefix.
func (t *Tracker) Fail(sessionID string, totalFiles, committed int, message string) {
	t.set(Status{
		SessionID:      sessionID,
		State:          StateError,
		TotalFiles:     totalFiles,
		FilesProcessed: 0,
		ChunksCreated:  committed,
		Message:        message,
	})
}

// Get returns the session's status. Sessions that never ingested report
// not_started.
func (t *Tracker) Get(sessionID string) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.statuses[sessionID]; ok {
		return s
	}
	return Status{SessionID: sessionID, State: StateNotStarted}
}

// Clear forgets the session's status, returning it to not_started.
func (t *Tracker) Clear(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.statuses, sessionID)
}

func (t *Tracker) set(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[s.SessionID] = s
}
