package conversation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/plenasaude/quote-assistant/pkg/logging"
)

// Handler wires HTTP requests to the conversation service.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// MessageRequest is the body of POST /conversations/message.
type MessageRequest struct {
	SessionID      string `json:"session_id"`
	Message        string `json:"message"`
	ReturningPhone string `json:"returning_phone,omitempty"`
}

// Routes mounts the conversation endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/conversations/message", h.Message)
	r.Get("/conversations/{sessionID}", h.GetSession)
	r.Delete("/conversations/{sessionID}", h.DeleteSession)
}

// Message handles POST /conversations/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode message request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var opts []SubmitOption
	if req.ReturningPhone != "" {
		opts = append(opts, WithReturningPhone(req.ReturningPhone))
	}
	reply, err := h.service.SubmitMessage(r.Context(), req.SessionID, req.Message, opts...)
	if err != nil {
		if errors.Is(err, ErrMissingSessionID) {
			http.Error(w, "session_id is required", http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to process message", "error", err, "session_id", req.SessionID)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, reply)
}

// GetSession handles GET /conversations/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.service.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load session", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, sess)
}

// DeleteSession handles DELETE /conversations/{sessionID}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.service.EndSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete session", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
