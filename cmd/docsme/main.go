// Command docsme is the entry point for the docsme document assistant.
// It provides a CLI interface (via Cobra), an interactive terminal chat
// session, and an optional HTTP server with a REST/SSE API.
package main

import (
	"fmt"
	"os"

	"github.com/docsme/docsme/cmd/docsme/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
