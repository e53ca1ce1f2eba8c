package dreamscape

import (
	"context"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dream"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Generator is the provider behind both generation steps.
type Generator interface {
	TextGenerator
	ImageGenerator
}

// Plugin implements the apps.Plugin interface for the Dreamscape app.
type Plugin struct {
	moderation *services.ModerationService
	registry   *tenant.Registry
	generator  Generator

	once    sync.Once
	handler *DreamHandler
}

// New creates a new dreamscape Plugin. A nil generator leaves generation
// unconfigured.
func New(moderation *services.ModerationService, registry *tenant.Registry, generator Generator) *Plugin {
	return &Plugin{moderation: moderation, registry: registry, generator: generator}
}

func (p *Plugin) ID() string { return "dreamscape" }

func (p *Plugin) Models() []interface{} {
	return []interface{}{
		&DreamSession{},
	}
}

// init builds the shared handler on first registration. A nil db keeps
// sessions in memory.
func (p *Plugin) init(db *gorm.DB, cfg *config.Config) *DreamHandler {
	p.once.Do(func() {
		var persisterFn PersisterFactory
		if db != nil {
			persisterFn = func(appID string) dream.Persister { return NewGormPersister(db, appID) }
		} else {
			var mu sync.Mutex
			byApp := make(map[string]*dream.MemoryPersister)
			persisterFn = func(appID string) dream.Persister {
				mu.Lock()
				defer mu.Unlock()
				mp, ok := byApp[appID]
				if !ok {
					mp = dream.NewMemoryPersister()
					byApp[appID] = mp
				}
				return mp
			}
		}

		var text TextGenerator
		var image ImageGenerator
		if p.generator != nil {
			text, image = p.generator, p.generator
		}
		svc := NewVisualizeService(text, image, cfg.GeminiTextModel, cfg.GeminiImageModel, cfg.AITimeout)

		sessions := NewSessionManager(persisterFn, cfg.SessionCacheSize, cfg.SeedGallery)
		p.handler = NewDreamHandler(sessions, svc, p.moderation, p.registry)
	})
	return p.handler
}

func visualizeLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}

func (p *Plugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	handler := p.init(db, cfg)

	dreams := router.Group("/dreams")
	dreams.Get("/state", handler.GetState)
	dreams.Patch("/draft", handler.UpdateDraft)
	dreams.Post("/surprise", handler.Surprise)
	dreams.Post("/visualize", visualizeLimiter(), handler.VisualizeSession)
	dreams.Post("/clear", handler.ClearCurrent)

	dreams.Get("/history", handler.GetHistory)
	dreams.Post("/history/:id/load", handler.LoadHistoryItem)
	dreams.Delete("/history/:id", handler.RemoveHistoryItem)
	dreams.Delete("/history", handler.ClearHistory)

	dreams.Put("/settings", handler.UpdateSettings)
	dreams.Post("/share/prompt", handler.OpenSharePrompt)
	dreams.Delete("/share/prompt", handler.CloseSharePrompt)
	dreams.Post("/share", handler.Share)

	dreams.Get("/gallery", handler.GetGallery)
	dreams.Post("/gallery/:id/like", handler.LikePublicDream)
	dreams.Post("/gallery/:id/report", handler.ReportPublicDream)
}

func (p *Plugin) RegisterPublicRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	handler := p.init(db, cfg)

	router.Post("/visualize", visualizeLimiter(), handler.Visualize)
	router.Get("/dreams/examples", handler.Examples)
}

func (p *Plugin) RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	handler := p.init(db, cfg)

	router.Delete("/dreams/gallery/:id", handler.RemovePublicDream)
	router.Get("/dreams/stats", handler.Stats)
}

// ForgetUser drops the dream session of a deleted account.
func (p *Plugin) ForgetUser(appID string, userID uuid.UUID) {
	if p.handler == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.handler.sessions.Forget(ctx, appID, userID)
}

func (p *Plugin) ContentTypes() []string {
	return []string{services.ContentTypePublicDream}
}

// RemoveContent takes a reported public dream out of the app's gallery.
func (p *Plugin) RemoveContent(appID, contentType, contentID string) bool {
	if p.handler == nil || contentType != services.ContentTypePublicDream {
		return false
	}
	return p.handler.sessions.Gallery(appID).Remove(contentID)
}

// BootstrapSession returns the user's dream state for the sign-in response.
func (p *Plugin) BootstrapSession(ctx context.Context, appID string, userID uuid.UUID) (any, error) {
	if p.handler == nil {
		return nil, nil
	}
	s, err := p.handler.sessions.Store(ctx, appID, userID)
	if err != nil {
		return nil, err
	}
	return s.State(), nil
}
