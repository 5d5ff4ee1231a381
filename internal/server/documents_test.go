package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/docsme/docsme/internal/ingestion"
	"github.com/docsme/docsme/internal/rag"
)

// fakeIngestor implements the ingestor interface for tests.
type fakeIngestor struct {
	// result is returned on success.
	result *ingestion.Result
	// err is returned instead when non-nil.
	err error
	// gotPath records the spooled path passed to IngestFile.
	gotPath string
}

func (f *fakeIngestor) IngestFile(_ context.Context, path, _ string) (*ingestion.Result, error) {
	f.gotPath = path
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	r.Source = path
	return &r, nil
}

// fakeLister implements the documentLister interface for tests.
type fakeLister struct {
	names []string
	err   error
}

func (f *fakeLister) Sources(context.Context) ([]string, error) {
	return f.names, f.err
}

// newUploadRequest builds a multipart POST /api/documents request with one
// "file" part carrying the given filename, content type, and body.
func newUploadRequest(t *testing.T, filename, contentType, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleUpload_Success(t *testing.T) {
	t.Parallel()

	ing := &fakeIngestor{result: &ingestion.Result{Chunks: 7}}
	s := newTestServer()
	s.ingest = ing

	w := httptest.NewRecorder()
	s.handleUploadDocument(w, newUploadRequest(t, "notes.txt", "text/plain", "some document text"))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d — body: %s", w.Code, w.Body.String())
	}

	var resp uploadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Source != "notes.txt" {
		t.Errorf("source: expected notes.txt, got %q", resp.Source)
	}
	if resp.Chunks != 7 {
		t.Errorf("chunks: expected 7, got %d", resp.Chunks)
	}
	if !strings.HasSuffix(ing.gotPath, "notes.txt") {
		t.Errorf("spooled path must keep the original base name, got %q", ing.gotPath)
	}
}

// TestHandleUpload_TypeByContentType verifies that a filename without a
// known extension is still accepted when the part's Content-Type identifies
// a supported document type.
func TestHandleUpload_TypeByContentType(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.ingest = &fakeIngestor{result: &ingestion.Result{Chunks: 1}}

	w := httptest.NewRecorder()
	s.handleUploadDocument(w, newUploadRequest(t, "notes", "text/markdown", "# heading"))

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d — body: %s", w.Code, w.Body.String())
	}
}

func TestHandleUpload_UnsupportedType(t *testing.T) {
	t.Parallel()

	ing := &fakeIngestor{result: &ingestion.Result{Chunks: 1}}
	s := newTestServer()
	s.ingest = ing

	w := httptest.NewRecorder()
	s.handleUploadDocument(w, newUploadRequest(t, "binary.exe", "application/octet-stream", "MZ"))

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", w.Code)
	}
	if ing.gotPath != "" {
		t.Error("ingestion must not run for rejected types")
	}
}

func TestHandleUpload_MissingFilePart(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.ingest = &fakeIngestor{result: &ingestion.Result{}}

	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()

	s.handleUploadDocument(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleUpload_ErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"no usable text", ingestion.ErrNoText, http.StatusUnprocessableEntity},
		{"provider quota", fmt.Errorf("googleapi: Error 429: quota exceeded"), http.StatusTooManyRequests},
		{"generic failure", fmt.Errorf("store unavailable"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer()
			s.ingest = &fakeIngestor{err: tc.err}

			w := httptest.NewRecorder()
			s.handleUploadDocument(w, newUploadRequest(t, "doc.pdf", "application/pdf", "%PDF-1.4"))

			if w.Code != tc.wantStatus {
				t.Errorf("expected %d, got %d — body: %s", tc.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleUpload_NotConfigured(t *testing.T) {
	t.Parallel()

	s := newTestServer()

	w := httptest.NewRecorder()
	s.handleUploadDocument(w, newUploadRequest(t, "notes.txt", "text/plain", "text"))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestHandleListDocuments(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.docs = &fakeLister{names: []string{"manual.pdf", "notes.txt"}}

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	w := httptest.NewRecorder()

	s.handleListDocuments(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp documentsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Files) != 2 || resp.Files[0] != "manual.pdf" {
		t.Errorf("files: got %v", resp.Files)
	}
}

func TestHandleListDocuments_Empty(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.docs = &fakeLister{}

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	w := httptest.NewRecorder()

	s.handleListDocuments(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"files":[]`) {
		t.Errorf("empty store must return an empty array, got: %s", w.Body.String())
	}
}

func TestHandleListDocuments_StoreError(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.docs = &fakeLister{err: fmt.Errorf("database is locked")}

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	w := httptest.NewRecorder()

	s.handleListDocuments(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

// listerStore is a minimal rag.VectorStore for the StoreLister adapter test.
type listerStore struct {
	records []rag.Record
}

func (l *listerStore) Upsert(context.Context, []rag.Record, [][]float32) error { return nil }
func (l *listerStore) Query(context.Context, []float32, int) ([]rag.Record, error) {
	return nil, nil
}
func (l *listerStore) ListAll(context.Context) ([]rag.Record, error) { return l.records, nil }
func (l *listerStore) Count(context.Context) (int, error)           { return len(l.records), nil }
func (l *listerStore) Close() error                                 { return nil }

func TestStoreLister_DeduplicatesSources(t *testing.T) {
	t.Parallel()

	lister := StoreLister{Store: &listerStore{records: []rag.Record{
		{Source: "/tmp/a/manual.pdf"},
		{Source: "/tmp/b/manual.pdf"},
		{Source: "notes.txt"},
	}}}

	names, err := lister.Sources(context.Background())
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	if len(names) != 2 || names[0] != "manual.pdf" || names[1] != "notes.txt" {
		t.Errorf("names: got %v", names)
	}
}
