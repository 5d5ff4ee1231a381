package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docsme/docsme/internal/logging"
	"github.com/docsme/docsme/internal/tui"
)

// NewChatCmd constructs the `docsme chat` command, which starts the
// interactive terminal chat session.
func NewChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session about your documents",
		Long: `Start an interactive terminal chat session.

Questions are answered from the ingested knowledge base with streamed
generation. Inside the session, type "help" for the available commands
("show files", "set temperature 0.5", "reset settings", ...).

Examples:
  docsme chat
  GEMINI_MODEL=gemini-1.5-pro docsme chat`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			engine, _, cleanup, err := buildEngine(ctx, log, uuid.NewString())
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer cleanup()

			p := tea.NewProgram(tui.New(ctx, engine), tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			return nil
		},
	}
}
