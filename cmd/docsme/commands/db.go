package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docsme/docsme/internal/logging"
	"github.com/docsme/docsme/internal/rag"
)

// NewDBCmd constructs the `docsme db` command group for knowledge base
// administration.
func NewDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and manage the knowledge base",
	}
	cmd.AddCommand(newDBStatusCmd(), newDBClearCmd())
	return cmd
}

// newDBStatusCmd constructs `docsme db status`: collection names, record
// count, and the distinct source documents.
func newDBStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show collections, record count, and ingested documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()

			handle, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("db status: %w", err)
			}
			defer handle.Store.Close()

			collections, err := handle.Admin.ListCollections(ctx)
			if err != nil {
				return fmt.Errorf("db status: list collections: %w", err)
			}
			count, err := handle.Store.Count(ctx)
			if err != nil {
				return fmt.Errorf("db status: count records: %w", err)
			}
			records, err := handle.Store.ListAll(ctx)
			if err != nil {
				return fmt.Errorf("db status: list records: %w", err)
			}

			fmt.Printf("Backend:      %s\n", handle.Backend)
			fmt.Printf("Collections:  %d\n", len(collections))
			for _, c := range collections {
				fmt.Printf("  - %s\n", c)
			}
			fmt.Printf("Records:      %d\n", count)
			sources := rag.DistinctSources(records)
			fmt.Printf("Documents:    %d\n", len(sources))
			for _, s := range sources {
				fmt.Printf("  - %s\n", s)
			}
			return nil
		},
	}
}

// newDBClearCmd constructs `docsme db clear`: drop a collection and all of
// its records. Destructive, so it requires --yes.
func newDBClearCmd() *cobra.Command {
	var yes bool
	var all bool
	var collection string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete a collection (or all collections) and their records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if !yes {
				return fmt.Errorf("db clear: refusing to delete without --yes")
			}

			handle, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("db clear: %w", err)
			}
			defer handle.Store.Close()

			if all {
				collections, err := handle.Admin.ListCollections(ctx)
				if err != nil {
					return fmt.Errorf("db clear: list collections: %w", err)
				}
				for _, c := range collections {
					if err := handle.Admin.DeleteCollection(ctx, c); err != nil {
						return fmt.Errorf("db clear: delete collection %q: %w", c, err)
					}
					log.Info("collection deleted", slog.String("collection", c))
				}
				return nil
			}

			if collection == "" {
				collection = getEnvOrDefault("DOCSME_COLLECTION", rag.DefaultCollection)
			}
			if err := handle.Admin.DeleteCollection(ctx, collection); err != nil {
				return fmt.Errorf("db clear: delete collection %q: %w", collection, err)
			}
			log.Info("collection deleted", slog.String("collection", collection))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	cmd.Flags().BoolVar(&all, "all", false, "Delete every collection, not just the configured one")
	cmd.Flags().StringVar(&collection, "collection", "", "Collection to delete (default: the configured collection)")

	return cmd
}
