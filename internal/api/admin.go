package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/chatqueue"
	"github.com/dennisdiepolder/monti/supportdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/supportdesk/internal/storage"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/rs/zerolog"
)

// AdminHandler handles maintenance operations on the engine and history tables
type AdminHandler struct {
	engine    *chatqueue.Engine
	publisher chatqueue.Publisher
	store     storage.Store
	now       func() time.Time
	logger    zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(engine *chatqueue.Engine, publisher chatqueue.Publisher, store storage.Store, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		engine:    engine,
		publisher: publisher,
		store:     store,
		now:       time.Now,
		logger:    logger.With().Str("component", "admin").Logger(),
	}
}

// ResetDaily handles POST /api/admin/reset-daily. The day's counters are
// persisted as AttendantDailyStats before being zeroed.
func (h *AdminHandler) ResetDaily(w http.ResponseWriter, r *http.Request) {
	date := h.now().UTC().Format("2006-01-02")
	if d := r.URL.Query().Get("date"); d != "" {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			http.Error(w, `{"error":"date must be YYYY-MM-DD"}`, http.StatusBadRequest)
			return
		}
		date = d
	}

	before := h.engine.ResetDaily()

	persisted := 0
	var failed []string
	for _, a := range before {
		stats := DailyStats(a, date)
		if err := h.store.SaveAttendantDailyStats(r.Context(), stats); err != nil {
			h.logger.Error().Err(err).Str("attendant_id", a.ID).Msg("failed to save daily stats")
			failed = append(failed, a.ID)
			continue
		}
		persisted++
	}

	h.logger.Info().
		Str("date", date).
		Int("attendants", len(before)).
		Int("persisted", persisted).
		Msg("daily counters reset via admin")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   fmt.Sprintf("reset %d attendants", len(before)),
		"date":      date,
		"reset":     len(before),
		"persisted": persisted,
		"failed":    failed,
	})
}

// DailyStats captures an attendant's counters for date
func DailyStats(a types.Attendant, date string) types.AttendantDailyStats {
	return types.AttendantDailyStats{
		AttendantID:       a.ID,
		Date:              date,
		Name:              a.Name,
		TotalChats:        a.TotalChatsToday,
		AvgResponseTime:   a.AvgResponseTime,
		SatisfactionScore: a.SatisfactionScore,
		Efficiency:        metrics.AttendantEfficiency(a),
	}
}

// WipeQueue handles DELETE /api/admin/queue
func (h *AdminHandler) WipeQueue(w http.ResponseWriter, r *http.Request) {
	cleared, events := h.engine.WipeQueue()
	h.publisher.Publish(events)

	h.logger.Info().Int("cleared", cleared).Msg("queue wiped via admin")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "queue wiped",
		"cleared": cleared,
	})
}

// TruncateRecords handles DELETE /api/admin/records
func (h *AdminHandler) TruncateRecords(w http.ResponseWriter, r *http.Request) {
	if err := h.store.TruncateAll(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("failed to truncate history tables")
		http.Error(w, fmt.Sprintf(`{"error":"failed to truncate: %s"}`, err), http.StatusInternalServerError)
		return
	}

	h.logger.Info().Msg("history tables truncated")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "history tables truncated",
	})
}
