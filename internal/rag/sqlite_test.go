package rag

import (
	"context"
	"path/filepath"
	"testing"
)

// openTestStore returns an in-memory SQLiteStore scoped to the default
// collection, closed automatically when the test ends.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:", "")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func vec(vals ...float32) []float32 { return vals }

func TestOpenSQLite_DefaultCollection(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	if s.Collection() != DefaultCollection {
		t.Errorf("Collection: got %q, want %q", s.Collection(), DefaultCollection)
	}
}

func TestQuery_EmptyCollection(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	got, err := s.Query(context.Background(), vec(1, 0, 0), 5)
	if err != nil {
		t.Fatalf("Query on empty collection: %v", err)
	}
	if got == nil {
		t.Fatal("Query returned nil slice, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("Query returned %d records, want 0", len(got))
	}
}

func TestUpsert_MismatchedLengths(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	err := s.Upsert(context.Background(),
		[]Record{{ID: "a", Content: "x", Source: "doc.txt"}},
		[][]float32{})
	if err == nil {
		t.Fatal("Upsert with mismatched lengths: expected error, got nil")
	}
}

func TestUpsert_OverwritesSameID(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	rec := Record{ID: "doc-0000-abc", Content: "first version", Source: "doc.txt"}
	if err := s.Upsert(ctx, []Record{rec}, [][]float32{vec(1, 0)}); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	rec.Content = "second version"
	if err := s.Upsert(ctx, []Record{rec}, [][]float32{vec(1, 0)}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count after re-upsert: got %d, want 1", n)
	}

	got, err := s.Query(ctx, vec(1, 0), 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].Content != "second version" {
		t.Errorf("Query after re-upsert: got %+v, want content %q", got, "second version")
	}
}

func TestQuery_RanksByCosineSimilarity(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	records := []Record{
		{ID: "far", Content: "unrelated", Source: "a.txt"},
		{ID: "near", Content: "on topic", Source: "a.txt"},
		{ID: "mid", Content: "somewhat related", Source: "a.txt"},
	}
	embeddings := [][]float32{
		vec(0, 1, 0),
		vec(1, 0, 0),
		vec(1, 1, 0),
	}
	if err := s.Upsert(ctx, records, embeddings); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Query(ctx, vec(1, 0, 0), 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Query returned %d records, want 2", len(got))
	}
	if got[0].ID != "near" || got[1].ID != "mid" {
		t.Errorf("ranking: got [%s, %s], want [near, mid]", got[0].ID, got[1].ID)
	}
	if got[0].Score <= got[1].Score {
		t.Errorf("scores not descending: %v then %v", got[0].Score, got[1].Score)
	}
}

func TestQuery_TieBrokenByID(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	// Identical vectors, so identical scores. Ordering must fall back to id.
	records := []Record{
		{ID: "b", Content: "two", Source: "a.txt"},
		{ID: "a", Content: "one", Source: "a.txt"},
	}
	if err := s.Upsert(ctx, records, [][]float32{vec(1, 0), vec(1, 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Query(ctx, vec(1, 0), 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("tie-break: got [%s, %s], want [a, b]", got[0].ID, got[1].ID)
	}
}

func TestQuery_DegradedRecordScoresZero(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	records := []Record{
		{ID: "ok", Content: "real", Source: "a.txt"},
		{ID: "bad", Content: "fallback", Source: "a.txt", Degraded: true},
	}
	if err := s.Upsert(ctx, records, [][]float32{vec(1, 0), vec(0, 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Query(ctx, vec(1, 0), 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got[0].ID != "ok" {
		t.Errorf("expected real record first, got %q", got[0].ID)
	}
	if got[1].Score != 0 {
		t.Errorf("zero-vector record score: got %v, want 0", got[1].Score)
	}
	if !got[1].Degraded {
		t.Error("degraded flag lost on round trip")
	}
}

func TestListAll_OrderedBySourceThenIndex(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	records := []Record{
		{ID: "b-1", Content: "x", Source: "b.txt", ChunkIndex: 1},
		{ID: "a-0", Content: "x", Source: "a.txt", ChunkIndex: 0},
		{ID: "b-0", Content: "x", Source: "b.txt", ChunkIndex: 0},
	}
	embeddings := [][]float32{vec(1), vec(1), vec(1)}
	if err := s.Upsert(ctx, records, embeddings); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	wantIDs := []string{"a-0", "b-0", "b-1"}
	if len(got) != len(wantIDs) {
		t.Fatalf("ListAll returned %d records, want %d", len(got), len(wantIDs))
	}
	for i, want := range wantIDs {
		if got[i].ID != want {
			t.Errorf("ListAll[%d]: got %q, want %q", i, got[i].ID, want)
		}
	}
}

func TestCollections_ListAndDelete(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, []Record{{ID: "a", Content: "x", Source: "a.txt"}}, [][]float32{vec(1)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	names, err := s.ListCollections(ctx)
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	if len(names) != 1 || names[0] != DefaultCollection {
		t.Errorf("ListCollections: got %v, want [%s]", names, DefaultCollection)
	}

	if err := s.DeleteCollection(ctx, DefaultCollection); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("Count after DeleteCollection: got %d, want 0", n)
	}

	names, err = s.ListCollections(ctx)
	if err != nil {
		t.Fatalf("ListCollections after delete: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("ListCollections after delete: got %v, want empty", names)
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "docsme.db")
	ctx := context.Background()

	s1, err := OpenSQLite(path, "")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s1.Upsert(ctx, []Record{{ID: "a", Content: "persisted", Source: "a.txt"}}, [][]float32{vec(1, 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := OpenSQLite(path, "")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, err := s2.Query(ctx, vec(1, 0), 1)
	if err != nil {
		t.Fatalf("Query after reopen: %v", err)
	}
	if len(got) != 1 || got[0].Content != "persisted" {
		t.Errorf("Query after reopen: got %+v, want the persisted record", got)
	}
}

func TestCosine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", vec(1, 2, 3), vec(1, 2, 3), 1},
		{"orthogonal", vec(1, 0), vec(0, 1), 0},
		{"opposite", vec(1, 0), vec(-1, 0), -1},
		{"zero vector", vec(0, 0), vec(1, 1), 0},
		{"length mismatch", vec(1, 0), vec(1, 0, 0), 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := cosine(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("cosine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDistinctSources(t *testing.T) {
	t.Parallel()

	records := []Record{
		{Source: "/docs/manual.pdf"},
		{Source: "/docs/manual.pdf"},
		{Source: "notes.txt"},
		{Source: ""},
		{Source: "/other/dir/abc.md"},
	}

	got := DistinctSources(records)
	want := []string{"abc.md", "manual.pdf", "notes.txt"}
	if len(got) != len(want) {
		t.Fatalf("DistinctSources: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DistinctSources[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}
