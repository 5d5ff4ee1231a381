package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docsme/docsme/internal/embedder"
	"github.com/docsme/docsme/internal/logging"
)

// NewDoctorCmd constructs the `docsme doctor` command, which checks the
// local setup: credentials present, model names plausible, the vector store
// reachable, and the embedding provider answering.
func NewDoctorCmd() *cobra.Command {
	var skipProbe bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and dependency reachability",
		Long: `Run pre-flight checks and report what is misconfigured.

Checks the embedding provider credentials and model name, the generation
provider credentials, whether the vector store opens, and makes one probe
embedding call against the provider (skip with --skip-probe to avoid
consuming quota).

Examples:
  docsme doctor
  docsme doctor --skip-probe
  STORE_BACKEND=qdrant docsme doctor`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()

			failures := 0
			check := func(name string, err error) {
				if err != nil {
					failures++
					fmt.Printf("FAIL  %-20s %v\n", name, err)
					return
				}
				fmt.Printf("ok    %s\n", name)
			}

			check("embedding provider", embedder.Validate(log))

			// Generation credentials: the default Gemini backend shares
			// GEMINI_API_KEY with the embedder.
			provider := getEnvOrDefault("MODEL_PROVIDER", "gemini")
			var genErr error
			switch provider {
			case "gemini":
				if os.Getenv("GEMINI_API_KEY") == "" {
					genErr = fmt.Errorf("GEMINI_API_KEY is not set")
				}
			case "openai":
				if os.Getenv("OPENAI_API_KEY") == "" {
					genErr = fmt.Errorf("OPENAI_API_KEY is not set")
				}
			case "azure":
				if os.Getenv("AZURE_OPENAI_API_KEY") == "" || os.Getenv("AZURE_OPENAI_ENDPOINT") == "" {
					genErr = fmt.Errorf("AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT must be set")
				}
			case "ollama":
				// Local backend, no credentials.
			default:
				genErr = fmt.Errorf("unknown MODEL_PROVIDER %q", provider)
			}
			check("generation provider ("+provider+")", genErr)

			handle, err := buildStore(ctx, log)
			if err != nil {
				check("vector store", err)
			} else {
				defer handle.Store.Close()
				check("vector store ("+handle.Backend+")", handle.Pingable.Ping(ctx))
			}

			if !skipProbe {
				probeErr := func() error {
					emb, err := embedder.NewFromEnv(ctx)
					if err != nil {
						return err
					}
					vec, err := emb.EmbedQuery(ctx, "ping")
					if err != nil {
						return err
					}
					if len(vec) == 0 {
						return fmt.Errorf("probe returned an empty vector")
					}
					return nil
				}()
				check("probe embedding", probeErr)
			}

			if failures > 0 {
				return fmt.Errorf("doctor: %d check(s) failed", failures)
			}
			fmt.Println("\nAll checks passed.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipProbe, "skip-probe", false, "Skip the probe embedding call (no quota consumed)")

	return cmd
}
