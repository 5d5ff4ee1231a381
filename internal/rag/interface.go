// Package rag defines the interfaces for the retrieval side of the
// assistant: vector storage, text embedding, and chunk retrieval.
// Concrete implementations (SQLite, Qdrant, Gemini, etc.) satisfy these
// interfaces so the chat and ingestion layers never depend on a specific
// backend.
package rag

import (
	"context"
	"path/filepath"
	"sort"
)

// Record is the persisted unit in the vector store: one document chunk with
// its embedding and metadata.
type Record struct {
	// ID is the unique identifier of this chunk within its collection.
	ID string

	// Content is the raw text of the chunk.
	Content string

	// Source is the path of the document the chunk was extracted from.
	Source string

	// ChunkIndex is the stable position of the chunk within its document.
	ChunkIndex int

	// Degraded marks a record whose embedding is a zero-vector fallback
	// written after an embedding failure. Degraded records are excluded
	// from retrieval results.
	Degraded bool

	// Score is the similarity score assigned during retrieval (0.0–1.0).
	// Zero value means the score was not computed.
	Score float32
}

// VectorStore is the interface for persisting and searching chunk embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or overwrites a batch of records with their embeddings.
	// The embeddings slice must be parallel to records — embeddings[i] is the
	// vector for records[i]. Re-ingesting a previously seen chunk id
	// overwrites the existing record.
	Upsert(ctx context.Context, records []Record, embeddings [][]float32) error

	// Query performs a similarity search and returns up to topN records
	// ranked nearest-first for the given query embedding. An empty collection
	// yields an empty slice, not an error. Ties are broken by record id so
	// the ordering is deterministic for a given store state.
	Query(ctx context.Context, queryEmbedding []float32, topN int) ([]Record, error)

	// ListAll returns every stored record without embeddings, used for
	// administrative listing of ingested documents.
	ListAll(ctx context.Context) ([]Record, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// CollectionAdmin is the administrative surface of a vector store backend:
// lifecycle operations that are never on the query hot path.
type CollectionAdmin interface {
	// ListCollections returns the names of all collections in the backend.
	ListCollections(ctx context.Context) ([]string, error)

	// DeleteCollection removes a collection and all of its records.
	DeleteCollection(ctx context.Context, name string) error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// EmbedDocuments converts a batch of chunk texts into embeddings for
	// storage. The returned slice is parallel to the input slice.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery converts a single query string into an embedding for search.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever is the high-level interface used by the chat layer to fetch
// relevant chunks for a query. It combines embedding and vector search.
type Retriever interface {
	// Retrieve returns the top-n most relevant records for the given query,
	// nearest first, with degraded records filtered out.
	Retrieve(ctx context.Context, query string, topN int) ([]Record, error)
}

// DistinctSources returns the deduplicated, sorted base names of the source
// documents present in records. Used by the `show files` chat command and
// the documents API.
func DistinctSources(records []Record) []string {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.Source == "" {
			continue
		}
		seen[filepath.Base(r.Source)] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
