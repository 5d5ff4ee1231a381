package rag

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "sme_db"

// SQLiteStore is a VectorStore backed by a local SQLite database file.
// It is the default backend: fully embedded, no external services, with
// the database living at a fixed path under the working directory.
// Similarity search loads the collection's vectors and ranks them by cosine
// similarity in-process, which is plenty for the corpus sizes a local
// assistant handles.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB

	// collection scopes all non-admin operations on this store handle.
	collection string
}

// DefaultDBPath returns the default vector database path, ./database/docsme.db
// relative to the working directory, creating the directory if needed.
func DefaultDBPath() (string, error) {
	dir := filepath.Join(".", "database")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("rag: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "docsme.db"), nil
}

// OpenSQLite opens (or creates) a SQLiteStore at the given path, scoped to
// the named collection, and runs the schema migration. Use ":memory:" for an
// in-memory database in tests.
func OpenSQLite(path, collection string) (*SQLiteStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("rag: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, collection: collection}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Collection returns the collection name this store handle is scoped to.
func (s *SQLiteStore) Collection() string { return s.collection }

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS records (
    collection  TEXT    NOT NULL,
    id          TEXT    NOT NULL,
    content     TEXT    NOT NULL,
    source      TEXT    NOT NULL,
    chunk_index INTEGER NOT NULL,
    degraded    INTEGER NOT NULL DEFAULT 0,
    embedding   BLOB    NOT NULL,
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_records_collection
    ON records (collection);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("rag: migrate: %w", err)
	}
	return nil
}

// Upsert stores or overwrites a batch of records with their embeddings.
// The whole batch is written in one transaction so a document's chunks are
// never partially visible.
func (s *SQLiteStore) Upsert(ctx context.Context, records []Record, embeddings [][]float32) error {
	if len(records) != len(embeddings) {
		return fmt.Errorf("rag: upsert: %d records but %d embeddings", len(records), len(embeddings))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rag: upsert begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const q = `
INSERT INTO records (collection, id, content, source, chunk_index, degraded, embedding)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (collection, id) DO UPDATE SET
    content     = excluded.content,
    source      = excluded.source,
    chunk_index = excluded.chunk_index,
    degraded    = excluded.degraded,
    embedding   = excluded.embedding`

	for i, r := range records {
		degraded := 0
		if r.Degraded {
			degraded = 1
		}
		if _, err := tx.ExecContext(ctx, q, s.collection, r.ID, r.Content, r.Source, r.ChunkIndex, degraded, encodeVector(embeddings[i])); err != nil {
			return fmt.Errorf("rag: upsert %q: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rag: upsert commit: %w", err)
	}
	return nil
}

// Query ranks every record in the collection by cosine similarity to the
// query embedding and returns the topN nearest. Ties are broken by id
// ascending so results are deterministic for a given store state.
func (s *SQLiteStore) Query(ctx context.Context, queryEmbedding []float32, topN int) ([]Record, error) {
	if topN <= 0 {
		return []Record{}, nil
	}

	const q = `SELECT id, content, source, chunk_index, degraded, embedding FROM records WHERE collection = ?`
	rows, err := s.db.QueryContext(ctx, q, s.collection)
	if err != nil {
		return nil, fmt.Errorf("rag: query: %w", err)
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var r Record
		var degraded int
		var blob []byte
		if err := rows.Scan(&r.ID, &r.Content, &r.Source, &r.ChunkIndex, &degraded, &blob); err != nil {
			return nil, fmt.Errorf("rag: query scan: %w", err)
		}
		r.Degraded = degraded != 0
		r.Score = cosine(queryEmbedding, decodeVector(blob))
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rag: query rows: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > topN {
		results = results[:topN]
	}
	if results == nil {
		results = []Record{}
	}
	return results, nil
}

// ListAll returns every record in the collection without embeddings or
// content, ordered by source then chunk index.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]Record, error) {
	const q = `
SELECT id, source, chunk_index, degraded
FROM   records
WHERE  collection = ?
ORDER  BY source, chunk_index`

	rows, err := s.db.QueryContext(ctx, q, s.collection)
	if err != nil {
		return nil, fmt.Errorf("rag: list: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var degraded int
		if err := rows.Scan(&r.ID, &r.Source, &r.ChunkIndex, &degraded); err != nil {
			return nil, fmt.Errorf("rag: list scan: %w", err)
		}
		r.Degraded = degraded != 0
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rag: list rows: %w", err)
	}
	return records, nil
}

// Count returns the number of records in the collection.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	const q = `SELECT COUNT(*) FROM records WHERE collection = ?`
	if err := s.db.QueryRowContext(ctx, q, s.collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("rag: count: %w", err)
	}
	return n, nil
}

// ListCollections returns the names of all collections present in the
// database file, sorted.
func (s *SQLiteStore) ListCollections(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT collection FROM records ORDER BY collection`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("rag: list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("rag: list collections scan: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rag: list collections rows: %w", err)
	}
	return names, nil
}

// DeleteCollection removes a collection and all of its records.
func (s *SQLiteStore) DeleteCollection(ctx context.Context, name string) error {
	const q = `DELETE FROM records WHERE collection = ?`
	if _, err := s.db.ExecContext(ctx, q, name); err != nil {
		return fmt.Errorf("rag: delete collection %q: %w", name, err)
	}
	return nil
}

// Ping verifies the database file is reachable. Used by readiness probes.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("rag: ping: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// encodeVector serialises a float32 vector as a little-endian byte blob.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector deserialises a little-endian byte blob into a float32 vector.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// cosine returns the cosine similarity of a and b, or 0 when either vector
// is zero-length or all zeros (degraded fallback embeddings score nothing).
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
