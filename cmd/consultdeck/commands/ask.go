package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consultdeck/consultdeck/internal/embedder"
	"github.com/consultdeck/consultdeck/internal/logging"
	"github.com/consultdeck/consultdeck/internal/provider"
	"github.com/consultdeck/consultdeck/internal/rag"
)

// NewAskCmd constructs the `consultdeck ask` command, which answers a single
// question against a previously ingested session from the command line.
func NewAskCmd() *cobra.Command {
	var sessionID string
	var slideID string
	var language string
	var tone string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question against an ingested session",
		Long: `Answer a single question grounded in a session's indexed documents.

This is the CLI equivalent of POST /api/query: the question is embedded,
relevant chunks are retrieved from the session's collection, and the
configured provider generates a grounded answer.

Examples:
  consultdeck ask --session demo-2026 "what were the Q2 margins?"
  consultdeck ask --session demo-2026 --slide slide-3 --language hi "timeline?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if sessionID == "" {
				return fmt.Errorf("ask: --session is required")
			}
			question := strings.Join(args, " ")

			generator, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise answer provider: %w", err)
			}

			emb, err := embedder.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}

			index, _, err := buildIndex(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer index.Close()

			engine, err := rag.NewEngine(emb, index, 0)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			answerer, err := rag.NewAnswerer(engine, generator, nil, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			answer, sources, err := answerer.Answer(ctx, rag.AnswerRequest{
				SessionID: sessionID,
				SlideID:   slideID,
				Question:  question,
				Language:  language,
				Tone:      tone,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(answer)
			if len(sources) > 0 {
				fmt.Println()
				for _, src := range sources {
					fmt.Printf("  source: %s (%.3f)\n", src.Source, src.Similarity)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Presentation session ID (required)")
	cmd.Flags().StringVar(&slideID, "slide", "", "Active slide ID to widen retrieval")
	cmd.Flags().StringVarP(&language, "language", "l", "en", "Answer language (en or hi)")
	cmd.Flags().StringVar(&tone, "tone", "", "Answer tone (e.g. formal, casual)")

	return cmd
}
