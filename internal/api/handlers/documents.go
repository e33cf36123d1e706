package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/docsage/docsage/internal/api"
	"github.com/docsage/docsage/internal/domain"
	"github.com/docsage/docsage/internal/service"
	"github.com/go-chi/chi/v5"
)

type DocumentService interface {
	Ingest(ctx context.Context, pages service.PageSource, filename string, report service.ProgressFunc) (*service.IngestResult, error)
	ArchiveOriginal(ctx context.Context, filename string, data []byte, contentType string) error
	DeleteDocument(ctx context.Context, source string) (int64, error)
	DownloadURL(ctx context.Context, source string) (string, error)
	ListDocuments(ctx context.Context) ([]domain.SourceInfo, error)
	PreviewDocument(ctx context.Context, source string, limit int) ([]string, error)
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type IngestPageRequest struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

type IngestRequest struct {
	Pages []IngestPageRequest `json:"pages"`
	// OriginalBase64 optionally carries the raw file for archiving.
	OriginalBase64 string `json:"original_base64,omitempty"`
	ContentType    string `json:"content_type,omitempty"`
}

// Ingest embeds and stores pre-extracted page text for one document,
// streaming progress lines back as they happen. The final line carries the
// chunk and page totals; an error aborts the stream with an "error:" line
// since headers are already sent.
func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		api.Error(w, http.StatusBadRequest, "document name is required")
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Pages) == 0 {
		api.Error(w, http.StatusBadRequest, "pages are required")
		return
	}

	var original []byte
	if req.OriginalBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.OriginalBase64)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid original_base64")
			return
		}
		original = decoded
	}

	pages := make([]service.Page, len(req.Pages))
	for i, p := range req.Pages {
		pages[i] = service.Page{Number: p.Page, Text: p.Text}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	report := func(status string) {
		fmt.Fprintln(w, status)
		if flusher != nil {
			flusher.Flush()
		}
	}

	if len(original) > 0 {
		if err := h.svc.ArchiveOriginal(r.Context(), name, original, req.ContentType); err != nil {
			report(fmt.Sprintf("warning: failed to archive original: %v", err))
		}
	}

	if _, err := h.svc.Ingest(r.Context(), service.NewSlicePages(pages), name, report); err != nil {
		report(fmt.Sprintf("error: %v", err))
	}
}

type DocumentResponse struct {
	Name       string `json:"name"`
	ChunkCount int64  `json:"chunk_count"`
}

// List returns every ingested document with its chunk count.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	docs := make([]DocumentResponse, len(sources))
	for i, s := range sources {
		docs[i] = DocumentResponse{Name: s.Name, ChunkCount: s.ChunkCount}
	}
	api.Success(w, http.StatusOK, docs)
}

// Delete removes all chunks for a document and its archived original.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		api.Error(w, http.StatusBadRequest, "document name is required")
		return
	}

	count, err := h.svc.DeleteDocument(r.Context(), name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	// A name with no chunks still deletes cleanly; the count tells the caller
	// whether anything matched.
	api.Success(w, http.StatusOK, map[string]any{"deleted": count})
}

// Download returns a presigned URL for the archived original file.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		api.Error(w, http.StatusBadRequest, "document name is required")
		return
	}

	url, err := h.svc.DownloadURL(r.Context(), name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]any{"name": name, "url": url})
}

// Preview returns the first chunk texts of a document.
func (h *DocumentHandler) Preview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		api.Error(w, http.StatusBadRequest, "document name is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	chunks, err := h.svc.PreviewDocument(r.Context(), name, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if len(chunks) == 0 {
		api.HandleError(w, domain.ErrSourceNotFound)
		return
	}

	api.Success(w, http.StatusOK, map[string]any{"name": name, "chunks": chunks})
}
