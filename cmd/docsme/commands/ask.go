package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docsme/docsme/internal/logging"
)

// NewAskCmd constructs the `docsme ask` command, which answers a single
// question and streams the response to stdout.
func NewAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question about your documents",
		Long: `Ask one question and print the streamed answer to stdout.

The answer is grounded on passages retrieved from the ingested knowledge
base. Questions outside the ingested material are answered with an
out-of-context notice.

Examples:
  docsme ask "how long is the warranty?"
  docsme ask what does chapter 3 say about returns`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			engine, _, cleanup, err := buildEngine(ctx, log, uuid.NewString())
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer cleanup()

			question := strings.Join(args, " ")
			var streamed int
			reply, err := engine.HandleMessage(ctx, question, func(chunk string) error {
				streamed += len(chunk)
				_, werr := fmt.Fprint(os.Stdout, chunk)
				return werr
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			// Command replies and failure notices are not streamed.
			if len(reply) > streamed {
				fmt.Fprint(os.Stdout, reply[streamed:])
			}
			fmt.Fprintln(os.Stdout)
			return nil
		},
	}
}
