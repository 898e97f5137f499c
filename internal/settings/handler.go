package settings

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dennisdiepolder/monti/supportdesk/internal/errs"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/rs/zerolog"
)

// Handler exposes the queue configuration over HTTP
type Handler struct {
	store  *FileStore
	logger zerolog.Logger
}

// NewHandler creates a new settings handler
func NewHandler(store *FileStore, logger zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger.With().Str("component", "settings_handler").Logger(),
	}
}

// GetQueue handles GET /api/settings/queue
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.store.QueueConfig())
}

// PutQueue handles PUT /api/settings/queue. Fields absent from the body keep their current values.
func (h *Handler) PutQueue(w http.ResponseWriter, r *http.Request) {
	var patch json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	cfg, err := h.store.Update(func(cfg *types.QueueConfig) error {
		if err := json.Unmarshal(patch, cfg); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrValidation, err)
		}
		return nil
	})
	if err != nil {
		status := errs.HTTPStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error().Err(err).Msg("failed to save queue settings")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}
