package api

import (
	"encoding/json"
	"net/http"

	"github.com/dennisdiepolder/monti/supportdesk/internal/chatqueue"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/rs/zerolog"
)

// RosterEntry represents a single attendant in the roster payload
type RosterEntry struct {
	Name               string                `json:"name"`
	Skills             []string              `json:"skills"`
	MaxConcurrentChats int                   `json:"maxConcurrentChats"`
	Status             types.AttendantStatus `json:"status,omitempty"` // defaults to available
}

// RosterHandler handles the roster registration endpoint
type RosterHandler struct {
	engine    *chatqueue.Engine
	publisher chatqueue.Publisher
	logger    zerolog.Logger
}

// NewRosterHandler creates a new RosterHandler
func NewRosterHandler(engine *chatqueue.Engine, publisher chatqueue.Publisher, logger zerolog.Logger) *RosterHandler {
	return &RosterHandler{
		engine:    engine,
		publisher: publisher,
		logger:    logger.With().Str("component", "roster").Logger(),
	}
}

type rosterError struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// HandleRoster handles POST /internal/attendants/roster. Invalid entries are
// reported and skipped; the rest are registered.
func (h *RosterHandler) HandleRoster(w http.ResponseWriter, r *http.Request) {
	var roster []RosterEntry
	if err := json.NewDecoder(r.Body).Decode(&roster); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	var registered []types.Attendant
	var failures []rosterError
	for i, entry := range roster {
		if entry.Status != "" && !entry.Status.Valid() {
			failures = append(failures, rosterError{Index: i, Name: entry.Name, Error: "unknown status " + string(entry.Status)})
			continue
		}
		a, events, err := h.engine.RegisterAttendant(entry.Name, entry.Skills, entry.MaxConcurrentChats)
		if err != nil {
			failures = append(failures, rosterError{Index: i, Name: entry.Name, Error: err.Error()})
			continue
		}
		h.publisher.Publish(events)

		if entry.Status != "" && entry.Status != a.Status {
			if _, events, err := h.engine.SetStatus(a.ID, entry.Status); err == nil {
				h.publisher.Publish(events)
			}
			if updated, err := h.engine.GetAttendant(a.ID); err == nil {
				a = updated
			}
		}
		registered = append(registered, a)
	}

	h.logger.Info().
		Int("registered", len(registered)).
		Int("failed", len(failures)).
		Msg("roster received")

	if registered == nil {
		registered = []types.Attendant{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"registered": registered,
		"errors":     failures,
	})
}
