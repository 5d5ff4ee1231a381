package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/docsme/docsme/internal/embedder"
	"github.com/docsme/docsme/internal/ingestion"
	"github.com/docsme/docsme/internal/logging"
	"github.com/docsme/docsme/internal/server"
	"github.com/docsme/docsme/internal/tracing"
)

// NewServeCmd constructs the `docsme serve` command, which starts the HTTP
// server exposing the assistant over a REST/SSE API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var probeEmbedder bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docsme HTTP server",
		Long: `Start the docsme HTTP server on localhost.

The server exposes:
  POST /api/chat        streamed question answering (SSE)
  POST /api/documents   multipart document upload and ingestion
  GET  /api/documents   list ingested documents
  GET  /api/health      liveness
  GET  /api/ready       readiness (dependency probes)
  GET  /metrics         Prometheus metrics

Set DOCSME_API_KEY to require Bearer authentication on /api/* routes.

Examples:
  docsme serve
  docsme serve --port 9090
  STORE_BACKEND=qdrant docsme serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.NewServer()
			ctx = logging.WithLogger(ctx, log)

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			}

			engine, handle, cleanup, err := buildEngine(ctx, log, "http")
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer cleanup()

			emb, err := embedder.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			pipeline, err := ingestion.NewPipeline(emb, handle.Store, ingestion.Config{
				Dimensions: embedder.DefaultDimensions(getEnvOrDefault("EMBEDDING_PROVIDER", "gemini")),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create pipeline: %w", err)
			}

			pingers := []server.Pinger{
				server.NewStorePinger(handle.Pingable, handle.Backend),
			}
			if probeEmbedder {
				name := getEnvOrDefault("EMBEDDING_PROVIDER", "gemini")
				pingers = append(pingers, server.NewEmbedderPinger(emb, name))
			}

			srv, err := server.New(engine, pipeline, server.StoreLister{Store: handle.Store}, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("DOCSME_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			log.Info("serve starting",
				slog.String("addr", host+":"+strconv.Itoa(port)),
				slog.String("store", handle.Backend),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")
	cmd.Flags().BoolVar(&probeEmbedder, "probe-embedder", false, "Include the embedding provider in /api/ready (each probe consumes quota)")

	return cmd
}
