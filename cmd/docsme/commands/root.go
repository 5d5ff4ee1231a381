// Package commands defines all Cobra CLI commands for the docsme binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docsme/docsme/internal/audit"
	"github.com/docsme/docsme/internal/config"
	"github.com/docsme/docsme/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docsme",
		Short: "docsme — question answering over your own documents",
		Long: `docsme is a local-first assistant that answers questions about your
documents. Ingest PDF, TXT, or Markdown files into a vector knowledge base,
then chat with a Gemini-backed model grounded on the retrieved passages.

Model and embedding providers are selected via environment variables
(GEMINI_API_KEY, MODEL_PROVIDER, EMBEDDING_PROVIDER) or a YAML config file
(~/.docsme/config.yaml). See 'docsme --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A .env in the working directory is picked up silently, matching
			// the local-development workflow. Absence is not an error.
			_ = godotenv.Load()

			log := logging.New()

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

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docsme/config.yaml)")

	root.AddCommand(
		NewChatCmd(),
		NewAskCmd(),
		NewIngestCmd(),
		NewServeCmd(),
		NewDBCmd(),
		NewDoctorCmd(),
		NewVersionCmd(),
	)

	return root
}
