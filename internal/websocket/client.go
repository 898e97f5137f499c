package websocket

import (
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/auth"
	"github.com/dennisdiepolder/monti/supportdesk/internal/config"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	// Unique client ID
	id string

	// The hub this client belongs to
	hub *Hub

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// Configuration
	config *config.Config

	// Logger
	logger zerolog.Logger

	// Empty for supervisors; set for attendants, who only see their own chat events
	attendantID string
	summaryOnly bool
}

// NewClient creates a new Client whose event delivery is limited by scope
func NewClient(hub *Hub, conn *websocket.Conn, cfg *config.Config, logger zerolog.Logger, scope Scope) *Client {
	clientID := uuid.New().String()
	return &Client{
		id:          clientID,
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		config:      cfg,
		logger:      logger.With().Str("client_id", clientID).Logger(),
		attendantID: scope.AttendantID,
		summaryOnly: scope.SummaryOnly,
	}
}

// Scope limits which chat events a client receives. Summaries reach every client.
type Scope struct {
	AttendantID string // only events involving this attendant; empty means all
	SummaryOnly bool   // no chat events at all
}

// scopeFor derives the event scope from the caller's claims. Supervisors may
// watch a single attendant through the attendantId query parameter. Agents
// are pinned to their attendant claim; callers that cannot be tied to an
// attendant get the summary feed only.
func scopeFor(claims *auth.Claims, requested string) Scope {
	if claims == nil {
		return Scope{SummaryOnly: true}
	}
	switch claims.Role {
	case auth.RoleAdmin, auth.RoleSupervisor:
		return Scope{AttendantID: requested}
	case auth.RoleAgent:
		if claims.AttendantID != "" {
			return Scope{AttendantID: claims.AttendantID}
		}
	}
	return Scope{SummaryOnly: true}
}

func (c *Client) accepts(audience []string) bool {
	if c.summaryOnly {
		return false
	}
	if c.attendantID == "" {
		return true
	}
	for _, id := range audience {
		if id == c.attendantID {
			return true
		}
	}
	return false
}

// readPump pumps messages from the websocket connection to the hub
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("websocket read error")
			}
			break
		}
		c.logger.Debug().Str("message", string(message)).Msg("received message from client")
	}
}

// writePump pumps messages from the hub to the websocket connection
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per message; dashboards parse each frame as a JSON document
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start starts the client's read and write pumps
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
