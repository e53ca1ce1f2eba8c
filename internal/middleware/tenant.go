package middleware

import (
	"slices"
	"strings"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
)

// Paths that don't require tenant identification.
var tenantSkipPaths = []string{
	"/api/health",
}

// TenantMiddleware resolves app_id from the X-App-ID header or the app_id
// query param, falling back to the registry's default app. JWTProtected
// later checks that the token was issued for the same app.
func TenantMiddleware(registry *tenant.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if slices.ContainsFunc(tenantSkipPaths, func(p string) bool { return strings.HasPrefix(path, p) }) {
			return c.Next()
		}

		appID, source := c.Get("X-App-ID"), "X-App-ID"
		if appID == "" {
			appID, source = c.Query("app_id"), "app_id"
		}

		switch {
		case appID != "" && !registry.Exists(appID):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Invalid " + source + ": " + appID,
			})
		case appID == "":
			appID = registry.DefaultAppID()
		}
		if appID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "X-App-ID header is required",
			})
		}

		c.Locals("app_id", appID)
		return c.Next()
	}
}
