package websocket

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dennisdiepolder/monti/supportdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/rs/zerolog"
)

var errHubFull = errors.New("websocket hub saturated")

// outbound is a message queued for the hub loop. A nil audience reaches every client.
type outbound struct {
	data     []byte
	audience []string
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Messages waiting to be fanned out
	broadcast chan outbound

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex to protect clients map
	mu sync.RWMutex

	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewHub creates a new Hub. m may be nil.
func NewHub(m *metrics.Metrics, logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		metrics:    m,
		logger:     logger.With().Str("component", "hub").Logger(),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.RecordWebSocketConnect()
			}
			h.logger.Info().
				Str("client_id", client.id).
				Str("attendant_id", client.attendantID).
				Int("total_clients", total).
				Msg("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info().
					Str("client_id", client.id).
					Int("total_clients", len(h.clients)).
					Msg("client disconnected")
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// Broadcast sends a message to all connected clients. It never blocks;
// when the hub is saturated the message is dropped and false returned.
func (h *Hub) Broadcast(message []byte) bool {
	return h.enqueue(outbound{data: message})
}

// BroadcastEvent relays an engine event. Attendant-scoped clients only see
// events that involve them; supervisors see everything.
func (h *Hub) BroadcastEvent(ev types.Event) error {
	data, err := json.Marshal(types.EventMessage{Type: "event", Event: ev})
	if err != nil {
		return err
	}
	audience := []string{}
	for _, id := range []string{ev.AttendantID, ev.FromAttendantID} {
		if id != "" {
			audience = append(audience, id)
		}
	}
	if !h.enqueue(outbound{data: data, audience: audience}) {
		return errHubFull
	}
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) enqueue(msg outbound) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		h.logger.Warn().Msg("broadcast buffer full, dropping message")
		return false
	}
}

func (h *Hub) fanOut(msg outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if msg.audience != nil && !client.accepts(msg.audience) {
			continue
		}
		select {
		case client.send <- msg.data:
			if h.metrics != nil {
				h.metrics.RecordWebSocketMessage()
			}
		default:
			// Client's send buffer is full, close and remove it
			h.drop(client)
			if h.metrics != nil {
				h.metrics.RecordWebSocketError()
			}
			h.logger.Warn().
				Str("client_id", client.id).
				Msg("client send buffer full, closing connection")
		}
	}
}

// drop removes a client; callers hold mu
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	if h.metrics != nil {
		h.metrics.RecordWebSocketDisconnect()
	}
}
