package document

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"paperbase/internal/middleware"
)

type Handler struct {
	service       *Service
	maxUploadSize int64
}

func NewHandler(s *Service, maxUploadMB int64) *Handler {
	return &Handler{service: s, maxUploadSize: maxUploadMB << 20}
}

// Create accepts either a multipart PDF upload or a JSON body with a URL to
// download, depending on the request content type.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.createFromUpload(ctx, w, r)
		return
	}
	h.createFromURL(ctx, w, r)
}

func (h *Handler) createFromUpload(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.writeError(ctx, w, "BAD_REQUEST", "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(ctx, w, "BAD_REQUEST", "Unable to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		h.writeError(ctx, w, "BAD_REQUEST", "Only PDF uploads are supported", http.StatusBadRequest)
		return
	}

	doc, err := h.service.AddFromUpload(ctx, header.Filename, file)
	if err != nil {
		slog.ErrorContext(ctx, "failed to add document", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Failed to add document", http.StatusInternalServerError)
		return
	}

	h.writeData(ctx, w, http.StatusCreated, doc)
}

func (h *Handler) createFromURL(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		h.writeError(ctx, w, "BAD_REQUEST", "URL is required", http.StatusBadRequest)
		return
	}

	doc, err := h.service.AddFromURL(ctx, req.URL)
	if err != nil {
		if errors.Is(err, ErrInvalidURL) {
			h.writeError(ctx, w, "BAD_REQUEST", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(ctx, "failed to add document from url", "url", req.URL, "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Failed to add document", http.StatusInternalServerError)
		return
	}

	h.writeData(ctx, w, http.StatusCreated, doc)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.service.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list documents", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	if docs == nil {
		docs = []Document{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": docs,
		"meta": map[string]int{"count": len(docs)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doc, err := h.service.Get(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(ctx, w, "NOT_FOUND", "Document not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(ctx, "failed to get document", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeData(ctx, w, http.StatusOK, doc)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Delete(ctx, r.PathValue("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(ctx, w, "NOT_FOUND", "Document not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(ctx, "failed to delete document", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) Bibtex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entry, err := h.service.Bibtex(ctx, r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			h.writeError(ctx, w, "NOT_FOUND", "Document not found", http.StatusNotFound)
		case errors.Is(err, ErrNoDOI):
			h.writeError(ctx, w, "NOT_FOUND", "Document has no DOI", http.StatusNotFound)
		default:
			slog.ErrorContext(ctx, "failed to fetch citation", "error", err)
			h.writeError(ctx, w, "BAD_GATEWAY", "Citation lookup failed", http.StatusBadGateway)
		}
		return
	}

	h.writeData(ctx, w, http.StatusOK, map[string]string{"bibtex": entry})
}

func (h *Handler) PageImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil || page < 1 {
		h.writeError(ctx, w, "BAD_REQUEST", "Invalid page number", http.StatusBadRequest)
		return
	}

	img, err := h.service.PageImage(ctx, r.PathValue("id"), page)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(ctx, w, "NOT_FOUND", "Document not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(ctx, "failed to render page", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(img); err != nil {
		slog.ErrorContext(ctx, "failed to write page image", "error", err)
	}
}

func (h *Handler) writeData(ctx context.Context, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": data}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
