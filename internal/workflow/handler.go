package workflow

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Handler exposes the n8n workflow list to the dashboard
type Handler struct {
	client *Client
	logger zerolog.Logger
}

// NewHandler creates a new workflow handler
func NewHandler(client *Client, logger zerolog.Logger) *Handler {
	return &Handler{
		client: client,
		logger: logger.With().Str("component", "workflow_handler").Logger(),
	}
}

// ListWorkflows handles GET /api/workflows
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.client.ListWorkflows(r.Context())
	if errors.Is(err, ErrDisabled) {
		http.Error(w, `{"error":"workflow automation not configured"}`, http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list workflows")
		http.Error(w, `{"error":"n8n unavailable"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(workflows)
}
