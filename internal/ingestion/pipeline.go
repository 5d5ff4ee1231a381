// Package ingestion implements the document ingestion pipeline: extract the
// text of an uploaded file, split it into chunks, embed the chunks, and
// upsert the results into the vector store. The pipeline is invoked by the
// `docsme ingest` CLI command, the chat upload flow, and the documents API.
package ingestion

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/docsme/docsme/internal/chunker"
	"github.com/docsme/docsme/internal/extract"
	"github.com/docsme/docsme/internal/logging"
	"github.com/docsme/docsme/internal/rag"
)

// ErrNoText marks a document from which no usable text could be extracted:
// empty files, scanned PDFs without a text layer, or text where every chunk
// falls below the usable minimum. Nothing is written to the store.
var ErrNoText = errors.New("no usable text extracted")

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// Chunker holds the text splitting parameters. Zero value means defaults.
	Chunker chunker.Config

	// EmbedTimeout bounds each embedding batch call. Defaults to 30s.
	EmbedTimeout time.Duration

	// AllowDegraded makes embedding failures non-fatal: failed chunks are
	// stored with zero-vector embeddings and marked degraded instead of
	// aborting the document. Off by default.
	AllowDegraded bool

	// Dimensions is the embedding vector size, used to shape the zero-vector
	// fallback so it matches what the store expects. Defaults to 768.
	Dimensions int
}

// Result summarises a completed ingestion of one document.
type Result struct {
	// Source is the path of the ingested document.
	Source string
	// Chunks is the number of chunks written to the store.
	Chunks int
	// Degraded is the number of chunks stored with fallback embeddings.
	Degraded int
}

// Pipeline orchestrates the extract → chunk → embed → upsert flow.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// splitter breaks document text into chunks.
	splitter *chunker.Splitter

	// cfg holds the resolved pipeline configuration.
	cfg Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg.Chunker == (chunker.Config{}) {
		cfg.Chunker = chunker.DefaultConfig()
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = 30 * time.Second
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 768
	}

	splitter, err := chunker.New(cfg.Chunker)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		splitter: splitter,
		cfg:      cfg,
	}, nil
}

// IngestFile extracts, chunks, embeds, and stores one document file.
// mimeType may be empty when the format is identifiable from the file name.
//
// The write is all-or-nothing: if any chunk fails to embed, no record of the
// document reaches the store (unless AllowDegraded is set, in which case the
// failed chunks are stored with zero vectors and excluded from retrieval).
// Re-ingesting the same file overwrites the previous records, so ingestion
// is idempotent.
func (p *Pipeline) IngestFile(ctx context.Context, path, mimeType string) (*Result, error) {
	log := logging.FromContext(ctx)

	text, err := extract.Text(path, mimeType, log)
	if err != nil {
		return nil, fmt.Errorf("ingestion: %w", err)
	}

	chunks := p.splitter.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("ingestion: %s: %w", filepath.Base(path), ErrNoText)
	}
	log.Debug("document chunked",
		slog.String("file", filepath.Base(path)),
		slog.Int("chunks", len(chunks)),
	)

	embedCtx, cancel := context.WithTimeout(ctx, p.cfg.EmbedTimeout)
	defer cancel()

	embeddings, err := p.embedder.EmbedDocuments(embedCtx, chunks)
	degradedCount := 0
	if err != nil {
		if !p.cfg.AllowDegraded {
			return nil, fmt.Errorf("ingestion: embedding failed for %s: %w", filepath.Base(path), err)
		}
		log.Warn("embedding failed, storing degraded records",
			slog.String("file", filepath.Base(path)),
			slog.Any("error", err),
		)
		embeddings = nil
		degradedCount = len(chunks)
	}

	records := make([]rag.Record, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		records[i] = rag.Record{
			ID:         chunkID(path, i, chunk),
			Content:    chunk,
			Source:     path,
			ChunkIndex: i,
			Degraded:   embeddings == nil,
		}
		if embeddings != nil {
			vectors[i] = embeddings[i]
		} else {
			// Backends validate vector size against the collection, so the
			// fallback must match the real embedding dimensionality.
			vectors[i] = make([]float32, p.cfg.Dimensions)
		}
	}

	if err := p.store.Upsert(ctx, records, vectors); err != nil {
		return nil, fmt.Errorf("ingestion: upsert failed for %s: %w", filepath.Base(path), err)
	}

	log.Info("document ingested",
		slog.String("file", filepath.Base(path)),
		slog.Int("chunks", len(chunks)),
		slog.Int("degraded", degradedCount),
	)

	return &Result{
		Source:   path,
		Chunks:   len(chunks),
		Degraded: degradedCount,
	}, nil
}

// chunkID derives a deterministic id for a chunk from the document's base
// name, the chunk's position, and a short hash of its content. Re-ingesting
// an unchanged document produces identical ids, making ingestion idempotent;
// an edited chunk gets a new id and the stale record ages out on clear.
func chunkID(path string, index int, content string) string {
	h := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s-%04d-%x", filepath.Base(path), index, h[:4])
}
