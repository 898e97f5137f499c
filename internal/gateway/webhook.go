package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/chatqueue"
	"github.com/dennisdiepolder/monti/supportdesk/internal/errs"
	"github.com/dennisdiepolder/monti/supportdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/rs/zerolog"
)

// InboundMessage is the gateway's message webhook payload
type InboundMessage struct {
	ChatID         string         `json:"chatId"`
	From           string         `json:"from"` // sender number
	Text           string         `json:"text"`
	FromMe         bool           `json:"fromMe"`
	Priority       types.Priority `json:"priority,omitempty"`
	RequiredSkills []string       `json:"requiredSkills,omitempty"`
}

// ConnectionEvent is the gateway's connection webhook payload
type ConnectionEvent struct {
	Connected bool   `json:"connected"`
	Phone     string `json:"phone,omitempty"`
	QRCode    string `json:"qrCode,omitempty"`
}

// WebhookHandler turns gateway callbacks into engine calls
type WebhookHandler struct {
	engine    *chatqueue.Engine
	publisher chatqueue.Publisher
	client    *Client
	metrics   *metrics.Metrics

	mu     sync.RWMutex
	status Status

	logger zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler. client and m may be nil.
func NewWebhookHandler(engine *chatqueue.Engine, publisher chatqueue.Publisher, client *Client, m *metrics.Metrics, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		engine:    engine,
		publisher: publisher,
		client:    client,
		metrics:   m,
		logger:    logger.With().Str("component", "gateway_webhook").Logger(),
	}
}

// HandleMessage handles POST /internal/gateway/message.
// A message opens a queue entry unless its chat is already queued or being handled.
func (h *WebhookHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var msg InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	msg.ChatID = strings.TrimSpace(msg.ChatID)
	if msg.ChatID == "" {
		http.Error(w, "chatId is required", http.StatusBadRequest)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordInboundMessage()
	}

	if msg.FromMe {
		writeStatus(w, http.StatusOK, "ignored")
		return
	}
	if _, ok := h.engine.FindQueued(msg.ChatID); ok {
		writeStatus(w, http.StatusOK, "queued")
		return
	}
	if _, err := h.engine.GetActive(msg.ChatID); err == nil {
		writeStatus(w, http.StatusOK, "active")
		return
	}

	item, events, err := h.engine.Enqueue(chatqueue.EnqueueRequest{
		ChatID:         msg.ChatID,
		RequiredSkills: msg.RequiredSkills,
		Hint:           msg.Priority,
		Text:           msg.Text,
		Contact:        msg.From,
	})
	if err != nil {
		status := errs.HTTPStatus(err)
		if errors.Is(err, errs.ErrValidation) && h.raced(msg.ChatID) {
			// Another delivery of the same message won the race
			writeStatus(w, http.StatusOK, "queued")
			return
		}
		h.logger.Warn().Err(err).Str("chat_id", msg.ChatID).Msg("failed to enqueue inbound chat")
		http.Error(w, err.Error(), status)
		return
	}
	h.publisher.Publish(events)

	h.logger.Info().
		Str("chat_id", item.ChatID).
		Str("priority", string(item.Priority)).
		Msg("inbound chat queued")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

func (h *WebhookHandler) raced(chatID string) bool {
	if _, ok := h.engine.FindQueued(chatID); ok {
		return true
	}
	_, err := h.engine.GetActive(chatID)
	return err == nil
}

// HandleConnection handles POST /internal/gateway/connection
func (h *WebhookHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	var ev ConnectionEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.status = Status{Connected: ev.Connected, Phone: ev.Phone, QRCode: ev.QRCode, UpdatedAt: time.Now()}
	h.mu.Unlock()

	if ev.Connected {
		h.logger.Info().Str("phone", ev.Phone).Msg("gateway connected")
	} else {
		h.logger.Warn().Bool("pairing", ev.QRCode != "").Msg("gateway disconnected")
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStatus handles GET /api/gateway/status. It asks the gateway directly and
// falls back to the last connection webhook when that fails.
func (h *WebhookHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	st := h.status
	h.mu.RUnlock()

	source := "webhook"
	if h.client != nil && h.client.Enabled() {
		live, err := h.client.Status(r.Context())
		if err != nil {
			h.logger.Warn().Err(err).Msg("gateway status unavailable")
		} else {
			if live.UpdatedAt.IsZero() {
				live.UpdatedAt = time.Now()
			}
			st = live
			source = "gateway"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": st,
		"source": source,
	})
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
