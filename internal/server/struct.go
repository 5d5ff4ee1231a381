package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docsme/docsme/internal/ingestion"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Must be long enough to cover a full SSE generation stream.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's Prometheus metrics. Defaults to
	// prometheus.DefaultRegisterer. Tests inject a fresh registry.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs the GET /metrics endpoint. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// chatter is the interface handleChat calls to answer one message.
// *chat.Engine satisfies it; tests inject a fake.
type chatter interface {
	// HandleMessage returns the complete reply for input, streaming
	// increments through emit as they are generated.
	HandleMessage(ctx context.Context, input string, emit func(string) error) (string, error)
}

// ingestor is the interface handleUploadDocument calls to ingest one file.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type ingestor interface {
	IngestFile(ctx context.Context, path, mimeType string) (*ingestion.Result, error)
}

// documentLister is the read side of the documents API: the deduplicated
// source names currently in the knowledge base.
type documentLister interface {
	Sources(ctx context.Context) ([]string, error)
}

// Server is the HTTP server that exposes the assistant over REST/SSE.
type Server struct {
	// chat answers /api/chat messages. The engine is not safe for concurrent
	// use, so chatMu serializes calls to it.
	chat   chatter
	chatMu sync.Mutex
	// ingest runs the document pipeline for POST /api/documents.
	ingest ingestor
	// docs lists ingested sources for GET /api/documents.
	docs documentLister
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Message is the user's question or chat command.
	Message string `json:"message"`
}

// documentsResponse is the JSON response for GET /api/documents.
type documentsResponse struct {
	// Files is the deduplicated, sorted list of ingested document names.
	Files []string `json:"files"`
}

// uploadResponse is the JSON response for POST /api/documents.
type uploadResponse struct {
	// Source is the name of the ingested document.
	Source string `json:"source"`
	// Chunks is the number of chunks written to the knowledge base.
	Chunks int `json:"chunks"`
	// Degraded is the number of chunks stored with fallback embeddings.
	Degraded int `json:"degraded,omitempty"`
}

// errorResponse is the JSON body for non-2xx API responses.
type errorResponse struct {
	// Error is the human-readable failure reason.
	Error string `json:"error"`
}
