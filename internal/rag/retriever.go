package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docsme/docsme/internal/logging"
)

// DefaultRetriever implements the Retriever interface by combining an
// Embedder and a VectorStore. It embeds the query at retrieval time,
// delegates similarity search to the store, and filters out degraded
// records so zero-vector fallbacks never reach the prompt.
type DefaultRetriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// store performs the vector similarity search.
	store VectorStore

	// defaultTopN is the number of results to return when the caller passes 0.
	defaultTopN int
}

// NewRetriever constructs a DefaultRetriever from the given Embedder and VectorStore.
// defaultTopN sets the fallback result count when Retrieve is called with topN=0.
func NewRetriever(embedder Embedder, store VectorStore, defaultTopN int) (*DefaultRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if defaultTopN <= 0 {
		defaultTopN = 5
	}
	return &DefaultRetriever{
		embedder:    embedder,
		store:       store,
		defaultTopN: defaultTopN,
	}, nil
}

// Retrieve embeds the query and returns the top-n most relevant records.
// If topN is 0 the defaultTopN configured at construction time is used.
// Degraded records are dropped from the result; the store is over-queried
// slightly so a handful of degraded records does not shrink the result set.
func (r *DefaultRetriever) Retrieve(ctx context.Context, query string, topN int) ([]Record, error) {
	if topN <= 0 {
		topN = r.defaultTopN
	}

	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}

	records, err := r.store.Query(ctx, embedding, topN*2)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	kept := make([]Record, 0, len(records))
	dropped := 0
	for _, rec := range records {
		if rec.Degraded {
			dropped++
			continue
		}
		kept = append(kept, rec)
		if len(kept) == topN {
			break
		}
	}
	if dropped > 0 {
		logging.FromContext(ctx).Warn("retrieval skipped degraded records",
			slog.Int("dropped", dropped),
			slog.String("query_prefix", prefix(query, 40)),
		)
	}

	return kept, nil
}

// prefix returns at most n leading bytes of s, for log context.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
