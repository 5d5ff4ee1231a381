package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/docsme/docsme/internal/embedder"
	"github.com/docsme/docsme/internal/extract"
	"github.com/docsme/docsme/internal/ingestion"
	"github.com/docsme/docsme/internal/logging"
	"github.com/docsme/docsme/internal/rag"
)

// StoreLister adapts a vector store to the documents listing endpoint.
type StoreLister struct {
	// Store is the knowledge base to list.
	Store rag.VectorStore
}

// Sources returns the deduplicated, sorted document names in the store.
func (l StoreLister) Sources(ctx context.Context) ([]string, error) {
	records, err := l.Store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return rag.DistinctSources(records), nil
}

// maxUploadBytes caps the size of one uploaded document (32 MiB).
const maxUploadBytes = 32 << 20

// handleUploadDocument handles POST /api/documents. The request is a
// multipart form with a single "file" part. Only PDF, plain text, and
// Markdown documents are accepted; anything else is rejected with 415
// before any extraction work happens.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if s.ingest == nil {
		writeError(w, http.StatusServiceUnavailable, "document ingestion is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart form with a 'file' part is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if extract.DetectType(header.Filename, contentType) == extract.TypeUnknown {
		log.Warn("upload rejected: unsupported document type",
			slog.String("filename", header.Filename),
			slog.String("content_type", contentType),
		)
		writeError(w, http.StatusUnsupportedMediaType, "unsupported document type: only PDF, TXT, and MD are accepted")
		return
	}

	// Spool the upload to a temp file named after the original so the
	// ingested source keeps the document's base name.
	tmpDir, err := os.MkdirTemp("", "docsme-upload-*")
	if err != nil {
		log.Error("upload spool failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, filepath.Base(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		log.Error("upload spool failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		log.Error("upload spool failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	dst.Close()

	result, err := s.ingest.IngestFile(r.Context(), path, contentType)
	if err != nil {
		s.metrics.ingestTotal.WithLabelValues("error").Inc()
		switch {
		case errors.Is(err, ingestion.ErrNoText):
			writeError(w, http.StatusUnprocessableEntity, "no usable text could be extracted from the document")
		case embedder.IsQuota(err):
			writeError(w, http.StatusTooManyRequests, "embedding provider quota exceeded, try again later")
		default:
			log.Error("ingestion failed",
				slog.String("filename", header.Filename),
				slog.Any("error", err),
			)
			writeError(w, http.StatusInternalServerError, "failed to ingest document")
		}
		return
	}

	s.metrics.ingestTotal.WithLabelValues("ok").Inc()
	s.metrics.ingestChunksTotal.Add(float64(result.Chunks))
	log.Info("document ingested",
		slog.String("source", filepath.Base(result.Source)),
		slog.Int("chunks", result.Chunks),
		slog.Int("degraded", result.Degraded),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(uploadResponse{ //nolint:errcheck
		Source:   filepath.Base(result.Source),
		Chunks:   result.Chunks,
		Degraded: result.Degraded,
	})
}

// handleListDocuments handles GET /api/documents: the deduplicated, sorted
// names of every document in the knowledge base.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.docs == nil {
		writeError(w, http.StatusServiceUnavailable, "document listing is not configured")
		return
	}

	names, err := s.docs.Sources(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("listing documents failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if names == nil {
		names = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(documentsResponse{Files: names}) //nolint:errcheck
}
