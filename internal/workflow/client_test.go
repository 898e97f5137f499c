package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTriggerWorkflow(t *testing.T) {
	var path string
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, zerolog.Nop())
	if err := c.TriggerWorkflow(context.Background(), "chat-assigned", map[string]string{"chatId": "c1"}); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if path != "/webhook/chat-assigned" {
		t.Errorf("unexpected path %s", path)
	}
	if body["chatId"] != "c1" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestTriggerWorkflowFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "", time.Second, zerolog.Nop()).TriggerWorkflow(context.Background(), "missing", nil)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected 404 error, got %v", err)
	}
}

func TestListWorkflows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/workflows" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-N8N-API-KEY") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":[{"id":"1","name":"Welcome","active":true},{"id":"2","name":"Survey","active":false}]}`))
	}))
	defer srv.Close()

	workflows, err := NewClient(srv.URL, "key", time.Second, zerolog.Nop()).ListWorkflows(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(workflows) != 2 || workflows[0].Name != "Welcome" || !workflows[0].Active {
		t.Errorf("unexpected workflows %+v", workflows)
	}

	if _, err := NewClient(srv.URL, "wrong", time.Second, zerolog.Nop()).ListWorkflows(context.Background()); err == nil {
		t.Error("expected error for bad API key")
	}
}

func TestHandlerListWorkflows(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want int
	}{
		{"disabled", "", http.StatusServiceUnavailable},
		{"unreachable", "http://127.0.0.1:1", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(NewClient(tt.url, "", 200*time.Millisecond, zerolog.Nop()), zerolog.Nop())
			rec := httptest.NewRecorder()
			h.ListWorkflows(rec, httptest.NewRequest(http.MethodGet, "/api/workflows", nil))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}

	if !errors.Is(NewClient("", "", time.Second, zerolog.Nop()).TriggerWorkflow(context.Background(), "x", nil), ErrDisabled) {
		t.Error("expected ErrDisabled")
	}
}
