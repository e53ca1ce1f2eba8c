package apps

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plugin defines the interface every app must implement.
type Plugin interface {
	// ID returns the unique app identifier (must match apps.json app_id).
	ID() string

	// Models returns the list of GORM model pointers for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts app-specific routes on the given Fiber group.
	// The group is already prefixed with /api/p and has JWT middleware applied.
	RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}

// AdminPlugin extends Plugin with admin-specific route registration.
// Plugins that implement this interface can register additional admin-only routes.
type AdminPlugin interface {
	Plugin

	// RegisterAdminRoutes mounts admin-only routes on the given Fiber group.
	// The group has both JWT and Admin middleware applied.
	RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}

// PublicPlugin lets an app expose unauthenticated routes under /api.
// The group has tenant middleware applied but no JWT.
type PublicPlugin interface {
	Plugin

	RegisterPublicRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}

// AccountCleaner is implemented by plugins that keep per-user state outside
// the shared tables. ForgetUser runs after an account is deleted.
type AccountCleaner interface {
	ForgetUser(appID string, userID uuid.UUID)
}

// ContentOwner is implemented by plugins that hold content users can report.
// RemoveContent takes one item down and reports whether it still existed.
type ContentOwner interface {
	ContentTypes() []string
	RemoveContent(appID, contentType, contentID string) bool
}

// SessionBootstrapper is implemented by plugins that hand the user's saved
// app state to the client together with its tokens.
type SessionBootstrapper interface {
	BootstrapSession(ctx context.Context, appID string, userID uuid.UUID) (any, error)
}
