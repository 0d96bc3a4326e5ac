package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"incident-service/config"

	"github.com/gin-gonic/gin"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		expected   string
	}{
		{
			name:       "valid bearer token",
			authHeader: "Bearer test-token-123",
			expected:   "test-token-123",
		},
		{
			name:       "missing bearer prefix",
			authHeader: "test-token-123",
			expected:   "",
		},
		{
			name:       "empty header",
			authHeader: "",
			expected:   "",
		},
		{
			name:       "bearer with empty token",
			authHeader: "Bearer ",
			expected:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := extractToken(tt.authHeader); result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

type staticValidator struct {
	name  string
	email string
	err   error
}

func (v staticValidator) ValidateToken(string) (string, string, error) {
	return v.name, v.email, v.err
}

func newTestRouter(validator TokenValidator, admins *config.AllowList) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authed := r.Group("/", AuthMiddleware(validator))
	authed.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": c.GetString("email")})
	})
	authed.GET("/admin", AdminRequired(admins), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		validator      staticValidator
		expectedStatus int
	}{
		{
			name:           "valid token",
			authHeader:     "Bearer good",
			validator:      staticValidator{name: "Alice", email: "teacher@example.com"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "no header",
			authHeader:     "",
			validator:      staticValidator{},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "bad format",
			authHeader:     "Basic abc",
			validator:      staticValidator{},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "rejected token",
			authHeader:     "Bearer bad",
			validator:      staticValidator{err: errors.New("expired")},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.validator, config.NewAllowList(nil))

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}
		})
	}
}

func TestAdminRequired(t *testing.T) {
	admins := config.NewAllowList([]string{"admin@example.com"})

	tests := []struct {
		name           string
		email          string
		expectedStatus int
	}{
		{name: "allow-listed", email: "admin@example.com", expectedStatus: http.StatusOK},
		{name: "case-folded match", email: "Admin@Example.COM", expectedStatus: http.StatusOK},
		{name: "not listed", email: "teacher@example.com", expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(staticValidator{name: "X", email: tt.email}, admins)

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer token")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}
		})
	}
}
