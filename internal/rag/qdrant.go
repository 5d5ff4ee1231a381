package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance. It is the
// optional server-backed alternative to the embedded SQLite store, selected
// via configuration when a corpus outgrows in-process search.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// exists (creating it if necessary), and returns a ready-to-use VectorStore.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	return nil
}

// pointID maps a record id onto a deterministic UUID, since Qdrant point ids
// must be UUIDs or integers. The same record id always maps to the same
// point, which is what gives re-ingestion its overwrite semantics.
func pointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String()
}

// Upsert stores or overwrites a batch of records with their embeddings.
func (s *QdrantStore) Upsert(ctx context.Context, records []Record, embeddings [][]float32) error {
	if len(records) != len(embeddings) {
		return fmt.Errorf("qdrant: upsert: %d records but %d embeddings", len(records), len(embeddings))
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for i, r := range records {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(r.ID)),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"record_id":   r.ID,
				"content":     r.Content,
				"source":      r.Source,
				"chunk_index": int64(r.ChunkIndex),
				"degraded":    r.Degraded,
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	return nil
}

// Query performs a cosine similarity search and returns the topN nearest records.
func (s *QdrantStore) Query(ctx context.Context, queryEmbedding []float32, topN int) ([]Record, error) {
	if topN <= 0 {
		return []Record{}, nil
	}

	limit := uint64(topN) //nolint:gosec // topN is a small positive result count
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: query failed: %w", err)
	}

	records := make([]Record, 0, len(results))
	for _, r := range results {
		rec := recordFromPayload(r.Payload)
		rec.Score = r.Score
		records = append(records, rec)
	}

	return records, nil
}

// ListAll returns the records currently stored in the collection. A single
// scroll page of up to 10k points is fetched, which comfortably covers the
// corpus sizes this assistant manages.
func (s *QdrantStore) ListAll(ctx context.Context) ([]Record, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.cfg.Collection,
		Limit:          qdrant.PtrOf(uint32(10000)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: scroll failed: %w", err)
	}

	records := make([]Record, 0, len(points))
	for _, p := range points {
		records = append(records, recordFromPayload(p.Payload))
	}
	return records, nil
}

// Count returns the number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return int(n), nil //nolint:gosec // collection sizes are far below int range
}

// ListCollections returns the names of all collections on the server.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("qdrant: list collections failed: %w", err)
	}
	return names, nil
}

// DeleteCollection removes a collection and all of its points.
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("qdrant: delete collection %q: %w", name, err)
	}
	return nil
}

// Ping calls the Qdrant HealthCheck RPC. Used by readiness probes.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// recordFromPayload reconstructs a Record from a Qdrant point payload.
func recordFromPayload(payload map[string]*qdrant.Value) Record {
	var rec Record
	if payload == nil {
		return rec
	}
	if v, ok := payload["record_id"]; ok {
		rec.ID = v.GetStringValue()
	}
	if v, ok := payload["content"]; ok {
		rec.Content = v.GetStringValue()
	}
	if v, ok := payload["source"]; ok {
		rec.Source = v.GetStringValue()
	}
	if v, ok := payload["chunk_index"]; ok {
		rec.ChunkIndex = int(v.GetIntegerValue())
	}
	if v, ok := payload["degraded"]; ok {
		rec.Degraded = v.GetBoolValue()
	}
	return rec
}
