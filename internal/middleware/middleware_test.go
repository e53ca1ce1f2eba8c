package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func testRegistry() *tenant.Registry {
	r := tenant.NewRegistry()
	r.Register(tenant.DefaultApp())
	r.Register(&tenant.AppConfig{AppID: "nightjar", AppName: "Nightjar"})
	return r
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func newApp(registry *tenant.Registry, handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(TenantMiddleware(registry))
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.SendString(tenant.GetAppID(c))
	})
	app.Get("/api/*", handlers...)
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestTenantMiddleware_Resolution(t *testing.T) {
	app := newApp(testRegistry())

	tests := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{"default app", "", "", http.StatusOK, "dreamscape"},
		{"header", "nightjar", "", http.StatusOK, "nightjar"},
		{"query", "", "nightjar", http.StatusOK, "nightjar"},
		{"header wins", "dreamscape", "nightjar", http.StatusOK, "dreamscape"},
		{"unknown header", "nope", "", http.StatusBadRequest, "Invalid X-App-ID: nope"},
		{"unknown query", "", "nope", http.StatusBadRequest, "Invalid app_id: nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/dreams"
			if tt.query != "" {
				target += "?app_id=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("X-App-ID", tt.header)
			}
			status, body := do(t, app, req)
			assert.Equal(t, tt.status, status)
			assert.Contains(t, body, tt.body)
		})
	}
}

func TestTenantMiddleware_NoDefault(t *testing.T) {
	status, body := do(t, newApp(tenant.NewRegistry()), httptest.NewRequest(http.MethodGet, "/api/dreams", nil))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "X-App-ID header is required")
}

func TestTenantMiddleware_SkipsHealth(t *testing.T) {
	status, body := do(t, newApp(tenant.NewRegistry()), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body)
}

func TestJWTProtected_TenantBinding(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	app := newApp(testRegistry(), JWTProtected(cfg))
	sub := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/api/dreams", nil)
	status, _ := do(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, status)

	req = httptest.NewRequest(http.MethodGet, "/api/dreams", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"sub": sub, "app_id": "dreamscape"}))
	status, body := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "dreamscape", body)

	req = httptest.NewRequest(http.MethodGet, "/api/dreams", nil)
	req.Header.Set("X-App-ID", "nightjar")
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"sub": sub, "app_id": "dreamscape"}))
	status, body = do(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "another app")

	req = httptest.NewRequest(http.MethodGet, "/api/dreams", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"sub": "not-a-uuid"}))
	status, _ = do(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAdminRequired(t *testing.T) {
	cfg := &config.Config{
		JWTSecret:   testSecret,
		AdminEmails: " Root@Example.com , ",
		AdminToken:  "letmein",
	}
	app := newApp(testRegistry(), JWTProtected(cfg), AdminRequired(nil, cfg))

	admin := signToken(t, jwt.MapClaims{"sub": uuid.NewString(), "email": "root@example.com", "app_id": "dreamscape"})
	req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	status, _ := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)

	user := signToken(t, jwt.MapClaims{"sub": uuid.NewString(), "email": "dreamer@example.com", "role": "admin"})
	req = httptest.NewRequest(http.MethodGet, "/api/admin", nil)
	req.Header.Set("Authorization", "Bearer "+user)
	status, body := do(t, app, req)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, body, "Admin access required")

	req = httptest.NewRequest(http.MethodGet, "/api/admin", nil)
	req.Header.Set("Authorization", "Bearer "+user)
	req.Header.Set("X-Admin-Token", "letmein")
	status, _ = do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
}

func TestCSVSet(t *testing.T) {
	assert.Empty(t, csvSet("", nil))
	assert.Equal(t, map[string]bool{"a": true, "b": true}, csvSet(" a,,b ", nil))
}
