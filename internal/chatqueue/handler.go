package chatqueue

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/errs"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler exposes the engine over HTTP
type Handler struct {
	engine    *Engine
	publisher Publisher
	counter   AssignmentCounter
	logger    zerolog.Logger
}

// NewHandler creates a new Handler. counter may be nil.
func NewHandler(engine *Engine, publisher Publisher, counter AssignmentCounter, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:    engine,
		publisher: publisher,
		counter:   counter,
		logger:    logger.With().Str("component", "chat_handler").Logger(),
	}
}

type registerRequest struct {
	Name               string   `json:"name"`
	Skills             []string `json:"skills"`
	MaxConcurrentChats int      `json:"maxConcurrentChats"`
}

type statusRequest struct {
	Status types.AttendantStatus `json:"status"`
}

type statusResponse struct {
	Attendant   types.Attendant             `json:"attendant"`
	Reallocated []types.ReallocationOutcome `json:"reallocated"`
}

type feedbackRequest struct {
	ResponseTimeMs *int64   `json:"responseTimeMs,omitempty"`
	Satisfaction   *float64 `json:"satisfaction,omitempty"`
}

type priorityRequest struct {
	Priority types.Priority `json:"priority"`
}

type assignRequest struct {
	AttendantID string `json:"attendantId"`
}

type transferRequest struct {
	FromAttendantID string `json:"fromAttendantId"`
	ToAttendantID   string `json:"toAttendantId"`
	Reason          string `json:"reason"`
}

// ListAttendants handles GET /api/attendants
func (h *Handler) ListAttendants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.ListAttendants())
}

// RegisterAttendant handles POST /api/attendants
func (h *Handler) RegisterAttendant(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	a, events, err := h.engine.RegisterAttendant(req.Name, req.Skills, req.MaxConcurrentChats)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publisher.Publish(events)
	writeJSON(w, http.StatusCreated, a)
}

// GetAttendant handles GET /api/attendants/{id}
func (h *Handler) GetAttendant(w http.ResponseWriter, r *http.Request) {
	a, err := h.engine.GetAttendant(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// SetStatus handles PUT /api/attendants/{id}/status
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}

	outcomes, events, err := h.engine.SetStatus(id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publisher.Publish(events)

	a, err := h.engine.GetAttendant(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if outcomes == nil {
		outcomes = []types.ReallocationOutcome{}
	}
	writeJSON(w, http.StatusOK, statusResponse{Attendant: a, Reallocated: outcomes})
}

// Reallocate handles POST /api/attendants/{id}/reallocate
func (h *Handler) Reallocate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	outcomes, events, err := h.engine.Reallocate(id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publisher.Publish(events)

	h.logger.Info().
		Str("attendant_id", id).
		Int("chats", len(outcomes)).
		Msg("reallocated via API")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"attendantId": id,
		"outcomes":    outcomes,
	})
}

// Feedback handles POST /api/attendants/{id}/feedback
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req feedbackRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ResponseTimeMs == nil && req.Satisfaction == nil {
		writeError(w, fmt.Errorf("%w: responseTimeMs or satisfaction is required", errs.ErrValidation))
		return
	}

	if req.ResponseTimeMs != nil {
		if err := h.engine.RecordResponseTime(id, time.Duration(*req.ResponseTimeMs)*time.Millisecond); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Satisfaction != nil {
		if err := h.engine.RecordSatisfaction(id, *req.Satisfaction); err != nil {
			writeError(w, err)
			return
		}
	}

	a, err := h.engine.GetAttendant(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ListQueue handles GET /api/queue
func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.PeekAll())
}

// Enqueue handles POST /api/queue
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if !decode(w, r, &req) {
		return
	}

	item, events, err := h.engine.Enqueue(req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publisher.Publish(events)
	writeJSON(w, http.StatusCreated, item)
}

// RemoveItem handles DELETE /api/queue/{itemId}. With ?reason=abandoned the
// removal is counted as an abandonment.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")

	remove := h.engine.Remove
	if r.URL.Query().Get("reason") == "abandoned" {
		remove = h.engine.Abandon
	}
	item, events, err := remove(itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publisher.Publish(events)
	writeJSON(w, http.StatusOK, item)
}

// SetPriority handles PUT /api/queue/{itemId}/priority
func (h *Handler) SetPriority(w http.ResponseWriter, r *http.Request) {
	var req priorityRequest
	if !decode(w, r, &req) {
		return
	}

	item, events, err := h.engine.Reprioritize(chi.URLParam(r, "itemId"), req.Priority)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publisher.Publish(events)
	writeJSON(w, http.StatusOK, item)
}

// AssignItem handles POST /api/queue/{itemId}/assign
func (h *Handler) AssignItem(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !decode(w, r, &req) {
		return
	}

	chat, events, err := h.engine.AssignToAttendant(chi.URLParam(r, "itemId"), req.AttendantID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.countAssignments(1)
	h.publisher.Publish(events)
	writeJSON(w, http.StatusOK, chat)
}

// AutoAssign handles POST /api/queue/auto-assign
func (h *Handler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	assignment, events, err := h.engine.AutoAssign()
	if err != nil {
		writeError(w, err)
		return
	}
	if assignment != nil {
		h.countAssignments(1)
	}
	h.publisher.Publish(events)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assignment": assignment,
	})
}

// ListChats handles GET /api/chats
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.ListActive())
}

// TransferChat handles POST /api/chats/{chatId}/transfer
func (h *Handler) TransferChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	var req transferRequest
	if !decode(w, r, &req) {
		return
	}

	events, err := h.engine.TransferChat(chatID, req.FromAttendantID, req.ToAttendantID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publisher.Publish(events)

	chat, err := h.engine.GetActive(chatID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// EndChat handles POST /api/chats/{chatId}/end
func (h *Handler) EndChat(w http.ResponseWriter, r *http.Request) {
	ended, events, err := h.engine.EndChat(chi.URLParam(r, "chatId"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.publisher.Publish(events)
	writeJSON(w, http.StatusOK, ended)
}

func (h *Handler) countAssignments(n int) {
	if h.counter != nil {
		h.counter.IncAssignments(n)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errs.HTTPStatus(err), map[string]string{"error": err.Error()})
}
