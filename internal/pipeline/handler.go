package pipeline

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	processor *Processor
}

func NewHandler(p *Processor) *Handler {
	return &Handler{processor: p}
}

// RunBatch executes a full batch synchronously and returns its summary. A
// concurrent run gets 409 with the busy summary.
func (h *Handler) RunBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary := h.processor.RunBatch(ctx)

	status := http.StatusOK
	if summary.Busy {
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": summary}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
