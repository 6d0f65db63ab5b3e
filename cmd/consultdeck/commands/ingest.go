package commands

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consultdeck/consultdeck/internal/embedder"
	"github.com/consultdeck/consultdeck/internal/ingest"
	"github.com/consultdeck/consultdeck/internal/logging"
)

// allowedExtensions lists the file types the CLI ingester reads. Binary
// formats are expected to be converted to text before ingestion.
var allowedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".rst":      true,
	".csv":      true,
	".json":     true,
}

// NewIngestCmd constructs the `consultdeck ingest` command, which indexes
// local files into a presentation session from the command line.
func NewIngestCmd() *cobra.Command {
	var sessionID string
	var scope string

	cmd := &cobra.Command{
		Use:   "ingest [files or directories]",
		Short: "Index local documents into a presentation session",
		Long: `Index local text documents into a presentation session's vector store.

Directories are walked recursively; only text formats (.txt, .md, .markdown,
.rst, .csv, .json) are read. Ingestion runs synchronously and reports the
number of chunks committed.

Required environment variables mirror the server: EMBEDDING_* selects the
embedding backend and QDRANT_* locates the vector store (or set
INDEX_PROVIDER=memory for a dry run).

Examples:
  consultdeck ingest --session demo-2026 ./deck-notes
  consultdeck ingest --session demo-2026 --scope slide-4 appendix.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if sessionID == "" {
				return fmt.Errorf("ingest: --session is required")
			}

			docs, err := collectDocuments(args)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			if len(docs) == 0 {
				return fmt.Errorf("ingest: no ingestable files found")
			}

			if err := embedder.ValidateForRetrieval(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			emb, err := embedder.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}

			index, _, err := buildIndex(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer index.Close()

			pipeline, err := ingest.NewPipeline(emb, index, &ingest.PipelineConfig{
				ChunkSize:    getEnvInt("CHUNK_SIZE", 0),
				ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 0),
			}, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			log.Info("starting ingestion",
				slog.String("session_id", sessionID),
				slog.Int("files", len(docs)),
			)

			chunks, err := pipeline.Ingest(ctx, sessionID, docs, scope)
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed after %d chunks: %w", chunks, err)
			}

			log.Info("ingestion complete",
				slog.String("session_id", sessionID),
				slog.Int("files", len(docs)),
				slog.Int("chunks", chunks),
			)
			fmt.Printf("indexed %d files (%d chunks) into session %s\n", len(docs), chunks, sessionID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Presentation session ID (required)")
	cmd.Flags().StringVar(&scope, "scope", "", "Scope applied to all ingested files (default: global)")

	return cmd
}

// collectDocuments reads the given files and directories into documents.
// Directories are walked recursively; files with unknown extensions are
// skipped silently so a deck folder can be passed wholesale.
func collectDocuments(paths []string) ([]ingest.Document, error) {
	var docs []ingest.Document

	addFile := func(path string) error {
		ext := strings.ToLower(filepath.Ext(path))
		if !allowedExtensions[ext] {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		docs = append(docs, ingest.Document{
			Path:      path,
			Content:   string(content),
			Extension: ext,
		})
		return nil
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if err := addFile(p); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			return addFile(path)
		})
		if err != nil {
			return nil, err
		}
	}

	return docs, nil
}
