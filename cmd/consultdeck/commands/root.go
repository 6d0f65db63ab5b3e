// Package commands defines all Cobra CLI commands for the consultdeck binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/consultdeck/consultdeck/internal/audit"
	"github.com/consultdeck/consultdeck/internal/config"
	"github.com/consultdeck/consultdeck/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "consultdeck",
		Short: "ConsultDeck, an AI assistant for live consulting presentations",
		Long: `ConsultDeck is an AI presentation assistant for consultants.

It indexes the decks and supporting documents of a presentation session,
answers audience questions grounded in that material, transcribes spoken
questions, and speaks answers aloud, optionally in the presenter's own
cloned voice.

The answer provider is selected via the AI_PROVIDER environment variable
or a YAML config file (~/.consultdeck/config.yaml).
See 'consultdeck --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// A local .env is a convenience for development; absence is fine.
			_ = godotenv.Load()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.consultdeck/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewAskCmd(),
		NewVersionCmd(),
	)

	return root
}
