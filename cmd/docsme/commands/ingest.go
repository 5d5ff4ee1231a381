package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docsme/docsme/internal/chunker"
	"github.com/docsme/docsme/internal/embedder"
	"github.com/docsme/docsme/internal/ingestion"
	"github.com/docsme/docsme/internal/logging"
)

// NewIngestCmd constructs the `docsme ingest` command, which runs the
// document ingestion pipeline to populate the knowledge base.
func NewIngestCmd() *cobra.Command {
	var allowDegraded bool
	var maxLen, overlap, minUsable int

	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest documents into the knowledge base",
		Long: `Extract, chunk, embed, and store one or more documents.

Supported formats: PDF, TXT, and Markdown. Re-ingesting a file overwrites
its previous chunks, so ingestion is safe to repeat.

Chunking defaults (1000 characters with 200 overlap, fragments of 50 or
fewer characters dropped) can be overridden per run with flags or the
CHUNK_* environment variables.

Examples:
  docsme ingest manual.pdf
  docsme ingest docs/*.md notes.txt
  docsme ingest --max-len 500 --overlap 100 handbook.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := embedder.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}

			handle, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer handle.Store.Close()

			cfg := chunker.Config{
				MaxLen:    getEnvInt("CHUNK_MAX_LEN", chunker.DefaultMaxLen),
				Overlap:   getEnvInt("CHUNK_OVERLAP", chunker.DefaultOverlap),
				MinUsable: getEnvInt("CHUNK_MIN_USABLE", chunker.DefaultMinUsable),
			}
			if cmd.Flags().Changed("max-len") {
				cfg.MaxLen = maxLen
			}
			if cmd.Flags().Changed("overlap") {
				cfg.Overlap = overlap
			}
			if cmd.Flags().Changed("min-usable") {
				cfg.MinUsable = minUsable
			}

			pipeline, err := ingestion.NewPipeline(emb, handle.Store, ingestion.Config{
				Chunker:       cfg,
				AllowDegraded: allowDegraded,
				Dimensions:    embedder.DefaultDimensions(getEnvOrDefault("EMBEDDING_PROVIDER", "gemini")),
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			failed := 0
			for _, path := range args {
				result, err := pipeline.IngestFile(ctx, path, "")
				if err != nil {
					failed++
					if errors.Is(err, ingestion.ErrNoText) {
						log.Warn("skipped: no usable text", slog.String("file", filepath.Base(path)))
						continue
					}
					log.Error("ingestion failed",
						slog.String("file", filepath.Base(path)),
						slog.Any("error", err),
					)
					continue
				}
				log.Info("ingested",
					slog.String("file", filepath.Base(result.Source)),
					slog.Int("chunks", result.Chunks),
					slog.Int("degraded", result.Degraded),
				)
			}

			if failed == len(args) {
				return fmt.Errorf("ingest: all %d document(s) failed", failed)
			}
			if failed > 0 {
				log.Warn("ingestion finished with failures",
					slog.Int("failed", failed),
					slog.Int("total", len(args)),
				)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowDegraded, "allow-degraded", false, "Store chunks with zero-vector embeddings when embedding fails instead of aborting the document")
	cmd.Flags().IntVar(&maxLen, "max-len", chunker.DefaultMaxLen, "Maximum chunk length in characters")
	cmd.Flags().IntVar(&overlap, "overlap", chunker.DefaultOverlap, "Characters of overlap between consecutive chunks")
	cmd.Flags().IntVar(&minUsable, "min-usable", chunker.DefaultMinUsable, "Chunks at or below this length are dropped")

	return cmd
}
