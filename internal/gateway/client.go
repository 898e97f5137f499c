// Package gateway talks to the WhatsApp gateway process: outbound messages
// over its REST API and inbound messages through webhooks.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ErrDisabled is returned when no gateway URL is configured
var ErrDisabled = errors.New("gateway not configured")

// Status is the gateway's view of its WhatsApp session
type Status struct {
	Connected bool      `json:"connected"`
	Phone     string    `json:"phone,omitempty"`
	QRCode    string    `json:"qrCode,omitempty"` // pending pairing code, empty once paired
	UpdatedAt time.Time `json:"updatedAt"`
}

// Client sends messages through the gateway
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a gateway client. An empty baseURL disables it.
func NewClient(baseURL, token string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "gateway_client").Logger(),
	}
}

// Enabled reports whether a gateway URL is configured
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// SendMessage delivers text to the WhatsApp chat chatID
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(map[string]string{"chatId": chatID, "text": text})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug().Str("chat_id", chatID).Msg("message sent")
	return nil
}

// Status fetches the session state from the gateway
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	resp, err := c.do(ctx, http.MethodGet, "/api/status", nil)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("failed to decode gateway status: %w", err)
	}
	return st, nil
}

// do sends a request and turns non-2xx answers into errors
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("gateway %s %s returned %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	return resp, nil
}
