package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"paperbase/features/document"
	"paperbase/internal/middleware"
	"paperbase/internal/retrieval"
)

type Handler struct {
	retriever *retrieval.Service
}

func NewHandler(r *retrieval.Service) *Handler {
	return &Handler{retriever: r}
}

// Search ranks one document's chunks against a query. Scores in the response
// are min-max normalized into [0, 1].
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", "Query is required", http.StatusBadRequest)
		return
	}

	results, err := h.retriever.Search(ctx, r.PathValue("id"), req.Query, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, document.ErrNotFound):
			h.writeError(ctx, w, "NOT_FOUND", "Document not found", http.StatusNotFound)
		case errors.Is(err, retrieval.ErrNotReady):
			h.writeError(ctx, w, "VALIDATION_ERROR", "Document embeddings not ready", http.StatusBadRequest)
		default:
			slog.ErrorContext(ctx, "search failed", "error", err)
			h.writeError(ctx, w, "INTERNAL_ERROR", "Search failed", http.StatusInternalServerError)
		}
		return
	}

	retrieval.NormalizeScores(results)

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": results,
		"meta": map[string]int{"count": len(results)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
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
