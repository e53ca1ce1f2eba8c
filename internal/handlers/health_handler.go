package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	registry  *tenant.Registry
	aiEnabled bool
}

func NewHealthHandler(registry *tenant.Registry, aiEnabled bool) *HealthHandler {
	return &HealthHandler{registry: registry, aiEnabled: aiEnabled}
}

// Check reports "degraded" with a 503 when the database is unreachable.
// Generation being unconfigured is reported but does not degrade health.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status, dbStatus := "ok", "ok"
	if err := database.Ping(); err != nil {
		status, dbStatus = "degraded", "unhealthy: "+err.Error()
		c.Status(fiber.StatusServiceUnavailable)
	}

	return c.JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		AppCount:  len(h.registry.All()),
		AIEnabled: h.aiEnabled,
	})
}
