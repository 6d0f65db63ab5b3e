package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/consultdeck/consultdeck/internal/embedder"
	"github.com/consultdeck/consultdeck/internal/ingest"
	"github.com/consultdeck/consultdeck/internal/logging"
	"github.com/consultdeck/consultdeck/internal/provider"
	"github.com/consultdeck/consultdeck/internal/rag"
	"github.com/consultdeck/consultdeck/internal/server"
	"github.com/consultdeck/consultdeck/internal/store"
	"github.com/consultdeck/consultdeck/internal/tracing"
	"github.com/consultdeck/consultdeck/internal/voice"
	"github.com/consultdeck/consultdeck/internal/websearch"
)

// NewServeCmd constructs the `consultdeck serve` command, which starts the
// HTTP server that presentation clients talk to during live sessions.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ConsultDeck HTTP server",
		Long: `Start the ConsultDeck HTTP server on localhost.

The server exposes the session API: document and slide ingestion, grounded
question answering, web search, voice transcription and synthesis, and
session history.

Examples:
  consultdeck serve
  consultdeck serve --port 9000
  AI_PROVIDER=ollama consultdeck serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Config file values are projected into the environment by the
			// root command, so flag fallbacks are resolved here, not at
			// flag-definition time.
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("SERVER_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("SERVER_PORT", port)
			}

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("AI_PROVIDER")))

			// Langfuse tracing is opt-in, a no-op when keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			generator, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise answer provider: %w", err)
			}

			if err := embedder.ValidateForRetrieval(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			emb, err := embedder.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			index, qdrantIndex, err := buildIndex(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer index.Close()

			pipeline, err := ingest.NewPipeline(emb, index, &ingest.PipelineConfig{
				ChunkSize:    getEnvInt("CHUNK_SIZE", 0),
				ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 0),
			}, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			ingestSvc, err := ingest.NewService(pipeline, index, ingest.NewTracker(), log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			// Let background ingestion jobs drain before exit.
			defer ingestSvc.Wait()

			voiceSvc, err := voice.NewService(ctx, voiceConfigFromEnv(), log)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise voice service: %w", err)
			}

			// Open conversation history store. CONSULTDECK_HISTORY_DB overrides
			// the default path (~/.consultdeck/history.db); "disabled" turns
			// history off entirely.
			var historyStore *store.SQLiteStore
			dbPath := os.Getenv("CONSULTDECK_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = store.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := store.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						historyStore = hs
						defer func() { _ = hs.Close() }()
						log.Info("history: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("history: disabled via CONSULTDECK_HISTORY_DB=disabled")
			}

			engine, err := rag.NewEngine(emb, index, getEnvInt("RETRIEVAL_TOP_K", 0))
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			var answerer *rag.Answerer
			if historyStore != nil {
				answerer, err = rag.NewAnswerer(engine, generator, historyStore, log)
			} else {
				answerer, err = rag.NewAnswerer(engine, generator, nil, log)
			}
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			var pingers []server.Pinger
			if qdrantIndex != nil {
				pingers = append(pingers, server.NewQdrantPinger(qdrantIndex.Client()))
			}
			if endpoint := os.Getenv("VOICE_CLONE_ENDPOINT"); endpoint != "" {
				pingers = append(pingers, server.NewHTTPPinger("voice-clone", endpoint))
			}
			if os.Getenv("AI_PROVIDER") == "ollama" {
				pingers = append(pingers, server.NewHTTPPinger("ollama", getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")))
			}

			deps := server.Deps{
				Ingest:    ingestSvc,
				Answerer:  answerer,
				Voice:     voiceSvc,
				WebSearch: websearch.New(generator, log),
			}
			if historyStore != nil {
				deps.History = historyStore
			}

			srv, err := server.New(deps, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("CONSULTDECK_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "TCP port to listen on")

	return cmd
}
