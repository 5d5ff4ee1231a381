package server

import (
	"context"
	"fmt"

	"github.com/docsme/docsme/internal/rag"
)

// StorePinger probes a vector store backend. Both the SQLite and Qdrant
// stores expose a Ping method; the wrapper adds the dependency label used
// in readiness responses.
type StorePinger struct {
	// store is the backend to probe.
	store interface {
		Ping(ctx context.Context) error
	}
	// name identifies the backend in readiness responses ("sqlite", "qdrant").
	name string
}

// NewStorePinger constructs a StorePinger for the given backend and label.
func NewStorePinger(store interface{ Ping(ctx context.Context) error }, name string) *StorePinger {
	return &StorePinger{store: store, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *StorePinger) Name() string { return p.name }

// Ping probes the store backend.
func (p *StorePinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	return nil
}

// EmbedderPinger probes an embedding backend by embedding a single short
// string. Each probe consumes provider quota, so /api/ready should only
// include it when quota cost is acceptable.
type EmbedderPinger struct {
	// embedder is the backend to probe.
	embedder rag.Embedder
	// name identifies the backend in readiness responses (e.g. "gemini").
	name string
}

// NewEmbedderPinger constructs an EmbedderPinger for the given backend and label.
func NewEmbedderPinger(e rag.Embedder, name string) *EmbedderPinger {
	return &EmbedderPinger{embedder: e, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.name }

// Ping embeds a one-word probe string against the backend.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vec, err := p.embedder.EmbedQuery(ctx, "ping")
	if err != nil {
		return fmt.Errorf("embed probe failed: %w", err)
	}
	if len(vec) == 0 {
		return fmt.Errorf("embed probe returned an empty vector")
	}
	return nil
}

// MultiPinger aggregates one or more Pinger implementations and reports
// the combined readiness of all dependencies.
type MultiPinger struct {
	// pingers is the ordered list of dependency probes to run.
	pingers []Pinger
}

// NewMultiPinger constructs a MultiPinger from the provided list of Pingers.
func NewMultiPinger(pingers ...Pinger) *MultiPinger {
	return &MultiPinger{pingers: pingers}
}

// Ping runs all registered probes sequentially and returns the first error
// encountered, or nil if all probes succeed.
func (m *MultiPinger) Ping(ctx context.Context) error {
	for _, p := range m.pingers {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	return nil
}

// Name returns a combined label for logging purposes.
func (m *MultiPinger) Name() string { return "multi" }
