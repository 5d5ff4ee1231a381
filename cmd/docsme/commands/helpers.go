package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/docsme/docsme/internal/chat"
	"github.com/docsme/docsme/internal/embedder"
	"github.com/docsme/docsme/internal/generation"
	"github.com/docsme/docsme/internal/rag"
	"github.com/docsme/docsme/internal/store"
)

// storeHandle bundles a vector store with its administrative and probing
// surfaces so commands can use whichever they need.
type storeHandle struct {
	// Store is the vector store backing retrieval and ingestion.
	Store rag.VectorStore
	// Admin exposes collection lifecycle operations.
	Admin rag.CollectionAdmin
	// Backend is the backend label ("sqlite" or "qdrant").
	Backend string
	// Pingable probes the backend for readiness checks.
	Pingable interface {
		Ping(ctx context.Context) error
	}
}

// buildStore opens the vector store selected by STORE_BACKEND. The embedded
// SQLite store is the default; set STORE_BACKEND=qdrant to use a Qdrant
// server instead. The caller must Close the returned store.
func buildStore(ctx context.Context, log *slog.Logger) (*storeHandle, error) {
	backend := getEnvOrDefault("STORE_BACKEND", "sqlite")
	collection := getEnvOrDefault("DOCSME_COLLECTION", rag.DefaultCollection)

	switch backend {
	case "sqlite":
		path := os.Getenv("DOCSME_DB_PATH")
		if path == "" {
			var err error
			path, err = rag.DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("resolve database path: %w", err)
			}
		}
		s, err := rag.OpenSQLite(path, collection)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store at %s: %w", path, err)
		}
		log.Info("sqlite store ready",
			slog.String("path", path),
			slog.String("collection", collection),
		)
		return &storeHandle{Store: s, Admin: s, Backend: "sqlite", Pingable: s}, nil

	case "qdrant":
		embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", "gemini")
		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		s, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
			Host:       host,
			Port:       port,
			Collection: collection,
			VectorSize: uint64(embedder.DefaultDimensions(embBackend)), //nolint:gosec // dimensions are bounded
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, fmt.Errorf("connect to qdrant at %s:%d: %w", host, port, err)
		}
		log.Info("qdrant store ready",
			slog.String("host", host),
			slog.Int("port", port),
			slog.String("collection", collection),
		)
		return &storeHandle{Store: s, Admin: s, Backend: "qdrant", Pingable: s}, nil

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (valid: sqlite, qdrant)", backend)
	}
}

// buildEngine wires the full question-answering stack: store, embedder,
// retriever, generator, optional transcript history, and the chat engine.
// The returned cleanup closes everything the engine holds open.
func buildEngine(ctx context.Context, log *slog.Logger, sessionID string) (*chat.Engine, *storeHandle, func(), error) {
	handle, err := buildStore(ctx, log)
	if err != nil {
		return nil, nil, nil, err
	}
	closers := []func(){func() { _ = handle.Store.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("initialise embedder: %w", err)
	}

	retriever, err := rag.NewRetriever(emb, handle.Store, getEnvInt("RETRIEVAL_TOP_N", 5))
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	gen, err := generation.NewFromEnv(ctx)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("initialise model provider: %w", err)
	}

	// Transcript history. DOCSME_HISTORY_DB overrides the default path
	// (~/.docsme/history.db). Set to "disabled" to turn persistence off.
	var history store.TranscriptStore
	dbPath := os.Getenv("DOCSME_HISTORY_DB")
	if dbPath != "disabled" {
		if dbPath == "" {
			dbPath, err = store.DefaultDBPath()
			if err != nil {
				log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
				dbPath = ""
			}
		}
		if dbPath != "" {
			hs, hsErr := store.Open(dbPath)
			if hsErr != nil {
				log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
			} else {
				history = hs
				closers = append(closers, func() { _ = hs.Close() })
			}
		}
	}

	engine, err := chat.NewEngine(retriever, handle.Store, gen, history, chat.Config{
		SessionID: sessionID,
		TopN:      getEnvInt("RETRIEVAL_TOP_N", 5),
	})
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	return engine, handle, cleanup, nil
}

// getEnvOrDefault returns the environment value for key, or fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer environment value for key, or fallback when
// unset or unparsable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
