package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_DegradedWithoutDatabase(t *testing.T) {
	registry := tenant.NewRegistry()
	registry.Register(tenant.DefaultApp())

	app := fiber.New()
	app.Get("/api/health", NewHealthHandler(registry, true).Check)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body dto.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
	assert.Contains(t, body.DB, "database not connected")
	assert.Equal(t, 1, body.AppCount)
	assert.True(t, body.AIEnabled)
}
