package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/config"
	"github.com/rs/zerolog"
)

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	healthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if response["status"] != "ok" {
		t.Errorf("expected status ok, got %s", response["status"])
	}
	if response["service"] != "supportdesk" {
		t.Errorf("expected service supportdesk, got %s", response["service"])
	}
}

func testApp(t *testing.T) *app {
	t.Helper()
	t.Setenv("SKIP_AUTH", "true")
	t.Setenv("DYNAMO_MODE", "memory")

	cfg := &config.Config{
		AllowedOrigins:  []string{"http://localhost:5173"},
		RoutingStrategy: "least_loaded",
		RoutingInterval: time.Second,
		SettingsPath:    filepath.Join(t.TempDir(), "queue-settings.json"),
		DispatchBuffer:  16,
		GatewayTimeout:  time.Second,
	}
	a, _, err := buildApp(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	return a
}

func TestBuildAppRejectsUnknownStrategy(t *testing.T) {
	cfg := &config.Config{RoutingStrategy: "round_robin", DispatchBuffer: 1}
	if _, _, err := buildApp(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown routing strategy")
	}
}

func TestRouter(t *testing.T) {
	a := testApp(t)
	router := newRouter(a, zerolog.Nop())

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		want     int
		contains string
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK, "supportdesk"},
		{"inbound message", http.MethodPost, "/internal/gateway/message", `{"chatId":"5511999@c.us","from":"5511999","text":"oi"}`, http.StatusCreated, "5511999@c.us"},
		{"duplicate message", http.MethodPost, "/internal/gateway/message", `{"chatId":"5511999@c.us","text":"oi de novo"}`, http.StatusOK, "queued"},
		{"queue listing", http.MethodGet, "/api/queue", "", http.StatusOK, "5511999@c.us"},
		{"roster", http.MethodPost, "/internal/attendants/roster", `[{"name":"Ana","maxConcurrentChats":2}]`, http.StatusOK, "Ana"},
		{"attendants", http.MethodGet, "/api/attendants", "", http.StatusOK, "Ana"},
		{"settings", http.MethodGet, "/api/settings/queue", "", http.StatusOK, "maxWaitSecs"},
		{"summary", http.MethodGet, "/api/summary", "", http.StatusOK, `"activeChats"`},
		{"workflows disabled", http.MethodGet, "/api/workflows", "", http.StatusServiceUnavailable, ""},
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound, ""},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK, "supportdesk_http_requests_total"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("expected body to contain %q, got %s", tt.contains, rec.Body.String())
			}
		})
	}
}

func TestRouterRequiresAuth(t *testing.T) {
	a := testApp(t)
	t.Setenv("SKIP_AUTH", "false")
	router := newRouter(a, zerolog.Nop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/queue", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected health to stay public, got %d", rec.Code)
	}
}
