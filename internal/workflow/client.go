// Package workflow triggers and lists n8n workflows
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// ErrDisabled is returned when no n8n URL is configured
var ErrDisabled = errors.New("workflow automation not configured")

// Workflow is the subset of the n8n workflow resource the dashboard shows
type Workflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Client talks to an n8n instance
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates an n8n client. An empty baseURL disables it.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "workflow_client").Logger(),
	}
}

// Enabled reports whether an n8n URL is configured
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// TriggerWorkflow posts payload to the webhook named name
func (c *Client) TriggerWorkflow(ctx context.Context, name string, payload interface{}) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/webhook/"+url.PathEscape(name), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create workflow request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("trigger %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("trigger %s returned %d", name, resp.StatusCode)
	}

	c.logger.Debug().Str("workflow", name).Msg("workflow triggered")
	return nil
}

// ListWorkflows returns the workflows defined in n8n
func (c *Client) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/workflows", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-N8N-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("list workflows returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var page struct {
		Data []Workflow `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode workflows: %w", err)
	}
	if page.Data == nil {
		page.Data = []Workflow{}
	}
	return page.Data, nil
}
