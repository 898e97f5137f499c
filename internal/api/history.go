package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/storage"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// HistoryHandler serves persisted attendant history
type HistoryHandler struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(store storage.Store, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		store:  store,
		logger: logger.With().Str("component", "history_handler").Logger(),
	}
}

// GetHistory returns daily stats for an attendant, newest first
// GET /api/attendants/{id}/history
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	attendantID := chi.URLParam(r, "id")
	if attendantID == "" {
		http.Error(w, "attendant id is required", http.StatusBadRequest)
		return
	}

	stats, err := h.store.GetAttendantDailyStats(r.Context(), attendantID)
	if err != nil {
		h.logger.Error().Err(err).Str("attendant_id", attendantID).Msg("failed to get daily stats")
		http.Error(w, "failed to retrieve history", http.StatusInternalServerError)
		return
	}

	if stats == nil {
		stats = []types.AttendantDailyStats{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// GetChats returns closed chats for an attendant on a date
// GET /api/attendants/{id}/chats?date=YYYY-MM-DD
func (h *HistoryHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	attendantID := chi.URLParam(r, "id")
	if attendantID == "" {
		http.Error(w, "attendant id is required", http.StatusBadRequest)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "date query parameter is required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	records, err := h.store.GetAttendantChatsByDate(r.Context(), attendantID, date)
	if err != nil {
		h.logger.Error().Err(err).
			Str("attendant_id", attendantID).
			Str("date", date).
			Msg("failed to get attendant chats")
		http.Error(w, "failed to retrieve chats", http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []types.ChatRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
