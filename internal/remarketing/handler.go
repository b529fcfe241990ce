package remarketing

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/plenasaude/quote-assistant/pkg/logging"
)

// Handler provides admin endpoints for the remarketing registry.
type Handler struct {
	worker *Worker
	logger *logging.Logger
}

// NewHandler creates a remarketing HTTP handler.
func NewHandler(worker *Worker, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{worker: worker, logger: logger}
}

// RegisterRoutes mounts the endpoints under /admin/remarketing.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/remarketing", h.listEntries)
	r.Post("/admin/remarketing/sweep", h.sweep)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.worker.scheduler.Entries(r.Context())
	if err != nil {
		h.logger.Error("remarketing handler: list entries", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	sent, err := h.worker.ProcessDue(r.Context())
	if err != nil {
		h.logger.Error("remarketing handler: sweep", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if sent == nil {
		sent = []Outbound{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"sent":  sent,
		"count": len(sent),
	})
}
