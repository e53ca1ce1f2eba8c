package middleware

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminRequired admits a request when any of these hold:
//   - X-Admin-Token matches ADMIN_TOKEN
//   - the token's email or subject is listed in ADMIN_EMAILS / ADMIN_USER_IDS
//   - the user row for the current app has role "admin"
func AdminRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	adminEmails := csvSet(cfg.AdminEmails, strings.ToLower)
	adminUserIDs := csvSet(cfg.AdminUserIDs, nil)
	adminToken := []byte(cfg.AdminToken)

	return func(c *fiber.Ctx) error {
		if len(adminToken) > 0 && subtle.ConstantTimeCompare([]byte(c.Get("X-Admin-Token")), adminToken) == 1 {
			return c.Next()
		}

		claims, err := tenant.TokenClaims(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		if adminEmails[strings.ToLower(claims.Email)] || adminUserIDs[claims.UserID.String()] {
			return c.Next()
		}
		if db != nil && hasAdminRole(db, tenant.GetAppID(c), claims) {
			return c.Next()
		}

		slog.Warn("admin access denied", "app_id", tenant.GetAppID(c), "user_id", claims.UserID.String(), "path", c.Path())
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}

// hasAdminRole checks the stored role; the role claim alone is not trusted.
func hasAdminRole(db *gorm.DB, appID string, claims tenant.Claims) bool {
	var user models.User
	err := db.Scopes(tenant.ForTenant(appID)).Select("role").First(&user, "id = ?", claims.UserID).Error
	return err == nil && user.Role == "admin"
}

func csvSet(s string, normalize func(string) string) map[string]bool {
	set := make(map[string]bool)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if normalize != nil {
			p = normalize(p)
		}
		set[p] = true
	}
	return set
}
