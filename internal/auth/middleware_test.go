package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// captureClaims records the claims the middleware put in the context
func captureClaims(got **Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := GetUserFromContext(r.Context())
		*got = c
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareSkipAuth(t *testing.T) {
	t.Setenv("SKIP_AUTH", "true")

	var claims *Claims
	rec := httptest.NewRecorder()
	Middleware(captureClaims(&claims)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/queue", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if claims == nil || claims.Role != RoleAdmin {
		t.Errorf("expected dev admin claims, got %+v", claims)
	}
}

func TestMiddlewareDevelopmentToken(t *testing.T) {
	t.Setenv("SKIP_AUTH", "")
	t.Setenv("ENV", "development")
	t.Setenv("VERIFY_JWT_SIGNATURE", "")

	tests := []struct {
		name       string
		token      string
		query      bool
		wantStatus int
		wantRole   string
	}{
		{"missing token", "", false, http.StatusUnauthorized, ""},
		{"garbage token", "not-a-jwt", false, http.StatusUnauthorized, ""},
		{
			name: "expired",
			token: signedToken(t, jwt.MapClaims{
				"email": "ana@example.com",
				"exp":   float64(time.Now().Add(-time.Hour).Unix()),
			}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "keycloak supervisor",
			token: signedToken(t, jwt.MapClaims{
				"email":        "sup@example.com",
				"realm_access": map[string]interface{}{"roles": []interface{}{"agent", "supervisor"}},
				"exp":          float64(time.Now().Add(time.Hour).Unix()),
			}),
			wantStatus: http.StatusOK,
			wantRole:   RoleSupervisor,
		},
		{
			name: "attendant via query",
			token: signedToken(t, jwt.MapClaims{
				"preferred_username": "ana",
				"cognito:groups":     []interface{}{"desk-agent"},
				"attendant_id":       "att-1",
			}),
			query:      true,
			wantStatus: http.StatusOK,
			wantRole:   RoleAgent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.token != "" {
				if tt.query {
					req = httptest.NewRequest(http.MethodGet, "/ws?token="+tt.token, nil)
				} else {
					req.Header.Set("Authorization", "Bearer "+tt.token)
				}
			}

			var claims *Claims
			rec := httptest.NewRecorder()
			Middleware(captureClaims(&claims)).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantRole != "" && (claims == nil || claims.Role != tt.wantRole) {
				t.Errorf("expected role %s, got %+v", tt.wantRole, claims)
			}
		})
	}
}

func TestMiddlewareAttendantClaim(t *testing.T) {
	t.Setenv("SKIP_AUTH", "")
	t.Setenv("ENV", "development")

	token := signedToken(t, jwt.MapClaims{"name": "Ana", "attendant_id": "att-1"})
	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	var claims *Claims
	Middleware(captureClaims(&claims)).ServeHTTP(httptest.NewRecorder(), req)

	if claims == nil || claims.AttendantID != "att-1" || claims.Name != "Ana" || claims.Role != RoleViewer {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestRoleGates(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name   string
		claims *Claims
		gate   func(http.Handler) http.Handler
		want   int
	}{
		{"no user", nil, RequireSupervisor, http.StatusUnauthorized},
		{"agent blocked from supervisor", &Claims{Role: RoleAgent}, RequireSupervisor, http.StatusForbidden},
		{"supervisor allowed", &Claims{Role: RoleSupervisor}, RequireSupervisor, http.StatusOK},
		{"admin allowed as supervisor", &Claims{Role: RoleAdmin}, RequireSupervisor, http.StatusOK},
		{"supervisor blocked from admin", &Claims{Role: RoleSupervisor}, RequireAdmin, http.StatusForbidden},
		{"admin allowed", &Claims{Role: RoleAdmin}, RequireAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/reset-daily", nil)
			if tt.claims != nil {
				req = req.WithContext(WithUser(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			tt.gate(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestInGroup(t *testing.T) {
	c := &Claims{Groups: []string{"a", "b"}}
	if !InGroup(c, "b") || InGroup(c, "c") {
		t.Error("unexpected group membership")
	}
}
