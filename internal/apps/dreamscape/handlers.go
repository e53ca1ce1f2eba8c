package dreamscape

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dream"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
)

const noStore = "no-store, no-cache, must-revalidate, proxy-revalidate"

// DreamHandler serves the dream session, gallery and generation routes.
type DreamHandler struct {
	sessions   *SessionManager
	service    *VisualizeService
	moderation *services.ModerationService
	registry   *tenant.Registry
}

func NewDreamHandler(sessions *SessionManager, service *VisualizeService, moderation *services.ModerationService, registry *tenant.Registry) *DreamHandler {
	return &DreamHandler{
		sessions:   sessions,
		service:    service,
		moderation: moderation,
		registry:   registry,
	}
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func (h *DreamHandler) store(c *fiber.Ctx) (*dream.Store, error) {
	userID, err := tenant.GetUserID(c)
	if err != nil {
		return nil, errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	s, err := h.sessions.Store(c.UserContext(), tenant.GetAppID(c), userID)
	if err != nil {
		return nil, errorJSON(c, fiber.StatusInternalServerError, "Failed to load dream session")
	}
	return s, nil
}

func (h *DreamHandler) styles(appID string) []string {
	if app := h.registry.Get(appID); app != nil && len(app.Styles) > 0 {
		return app.Styles
	}
	return Styles
}

func (h *DreamHandler) params(appID string, req VisualizeRequest) (GenerateParams, error) {
	p, err := h.service.Params(req)
	if err != nil {
		return p, err
	}
	if app := h.registry.Get(appID); app != nil {
		p.TextModel = app.TextModel(p.TextModel)
		p.ImageModel = app.ImageModel(p.ImageModel)
	}
	return p, nil
}

// validatePatch rejects enum values outside their sets and styles outside
// the app's catalog.
func (h *DreamHandler) validatePatch(appID string, p dream.DraftPatch) error {
	if p.DreamText != nil && utf8.RuneCountInString(*p.DreamText) > dream.MaxDreamTextLength {
		return errors.New("dreamText must be at most " + strconv.Itoa(dream.MaxDreamTextLength) + " characters")
	}
	if p.LengthPreference != nil && !p.LengthPreference.Valid() {
		return errors.New("lengthPreference must be short, medium or long")
	}
	if p.AspectRatio != nil && !p.AspectRatio.Valid() {
		return errors.New("aspectRatio must be 1:1, 16:9 or 9:16")
	}
	if p.Style != nil && !slices.Contains(h.styles(appID), *p.Style) {
		return errors.New("unknown style: " + *p.Style)
	}
	return nil
}

// Visualize handles POST /api/visualize, the stateless generation contract.
func (h *DreamHandler) Visualize(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, noStore)

	var req VisualizeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(VisualizeErrorResponse{Error: "Invalid request body"})
	}

	p, err := h.params(tenant.GetAppID(c), req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(VisualizeErrorResponse{Error: "Missing 'dream' or 'style' in request body"})
	}

	result, err := h.service.Generate(c.UserContext(), p)
	if errors.Is(err, ErrMisconfigured) {
		return c.Status(fiber.StatusInternalServerError).JSON(VisualizeErrorResponse{Error: "Server misconfiguration: GOOGLE_API_KEY missing"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(VisualizeErrorResponse{Error: "Failed to generate analysis"})
	}

	return c.JSON(VisualizeResponse{ImageURL: result.ImageURL, AnalysisText: result.AnalysisText})
}

// Examples handles GET /api/dreams/examples
func (h *DreamHandler) Examples(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"examples": ExampleDreams,
		"styles":   h.styles(tenant.GetAppID(c)),
	})
}

// GetState handles GET /api/p/dreams/state
func (h *DreamHandler) GetState(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	return c.JSON(s.State())
}

// UpdateDraft handles PATCH /api/p/dreams/draft
func (h *DreamHandler) UpdateDraft(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}

	var patch dream.DraftPatch
	if err := c.BodyParser(&patch); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.validatePatch(tenant.GetAppID(c), patch); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	s.UpdateDraft(patch)
	return c.JSON(s.State())
}

// Surprise handles POST /api/p/dreams/surprise
func (h *DreamHandler) Surprise(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	s.SetDreamText(ExampleDreams[rand.IntN(len(ExampleDreams))])
	return c.JSON(s.State())
}

// VisualizeSession handles POST /api/p/dreams/visualize. Body fields, when
// present, update the draft before generating from it.
func (h *DreamHandler) VisualizeSession(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	appID := tenant.GetAppID(c)

	var patch dream.DraftPatch
	if len(c.Body()) > 0 {
		var req VisualizeRequest
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
		}
		patch = dream.DraftPatch{
			LengthPreference: req.LengthPreference,
			Temperature:      req.Temperature,
			AspectRatio:      req.AspectRatio,
		}
		if req.Dream != "" {
			patch.DreamText = &req.Dream
		}
		if req.Style != "" {
			patch.Style = &req.Style
		}
	}
	if err := h.validatePatch(appID, patch); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	s.UpdateDraft(patch)

	if !h.service.Enabled() {
		return errorJSON(c, fiber.StatusInternalServerError, "Server misconfiguration: GOOGLE_API_KEY missing")
	}

	d := s.State().Draft
	if strings.TrimSpace(d.DreamText) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Describe your dream and pick a style first")
	}
	p, err := h.params(appID, VisualizeRequest{
		Dream:            d.DreamText,
		Style:            d.Style,
		LengthPreference: &d.LengthPreference,
		Temperature:      &d.Temperature,
		AspectRatio:      &d.AspectRatio,
	})
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Describe your dream and pick a style first")
	}

	ticket := s.BeginGeneration()
	result, genErr := h.service.Generate(c.UserContext(), p)
	done := s.FinishGeneration(ticket, result, genErr)

	c.Set(fiber.HeaderCacheControl, noStore)
	return c.JSON(SessionVisualizeResponse{
		Result: done.Result,
		Entry:  done.Entry,
		Stale:  done.Stale,
		Failed: genErr != nil,
	})
}

// ClearCurrent handles POST /api/p/dreams/clear
func (h *DreamHandler) ClearCurrent(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	s.ClearCurrent()
	return c.JSON(s.State())
}

// GetHistory handles GET /api/p/dreams/history
func (h *DreamHandler) GetHistory(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	history := s.State().History
	return c.JSON(fiber.Map{
		"data":  history,
		"total": len(history),
	})
}

// LoadHistoryItem handles POST /api/p/dreams/history/:id/load
func (h *DreamHandler) LoadHistoryItem(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	entry, ok := s.HistoryEntry(c.Params("id"))
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, ErrEntryNotFound.Error())
	}
	s.LoadFromHistory(entry)
	return c.JSON(s.State())
}

// RemoveHistoryItem handles DELETE /api/p/dreams/history/:id
func (h *DreamHandler) RemoveHistoryItem(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	if !s.RemoveHistoryItem(c.Params("id")) {
		return errorJSON(c, fiber.StatusNotFound, ErrEntryNotFound.Error())
	}
	return c.JSON(fiber.Map{"message": "Dream removed from history"})
}

// ClearHistory handles DELETE /api/p/dreams/history
func (h *DreamHandler) ClearHistory(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	s.ClearHistory()
	return c.JSON(fiber.Map{"message": "History cleared"})
}

// UpdateSettings handles PUT /api/p/dreams/settings
func (h *DreamHandler) UpdateSettings(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	var settings dream.UserSettings
	if err := c.BodyParser(&settings); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	s.UpdateSettings(settings)
	return c.JSON(s.State().Settings)
}

// OpenSharePrompt handles POST /api/p/dreams/share/prompt
func (h *DreamHandler) OpenSharePrompt(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	s.OpenSharePrompt()
	return c.JSON(s.State())
}

// CloseSharePrompt handles DELETE /api/p/dreams/share/prompt
func (h *DreamHandler) CloseSharePrompt(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	s.CloseSharePrompt()
	return c.JSON(s.State())
}

// Share handles POST /api/p/dreams/share
func (h *DreamHandler) Share(c *fiber.Ctx) error {
	if !h.registry.HasFeature(tenant.GetAppID(c), tenant.FeatureSharing) {
		return errorJSON(c, fiber.StatusForbidden, ErrSharingDisabled.Error())
	}
	s, err := h.store(c)
	if s == nil {
		return err
	}

	var req ShareRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
		}
	}

	entry, err := s.ShareCurrentDream(dream.ShareOptions{
		Region: req.Region,
		Screen: h.moderation.CheckContent,
	})
	switch {
	case errors.Is(err, dream.ErrNothingToShare):
		return errorJSON(c, fiber.StatusConflict, "Visualize a dream before sharing it")
	case errors.Is(err, services.ErrContentRejected):
		return errorJSON(c, fiber.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to share dream")
	}

	return c.Status(fiber.StatusCreated).JSON(entry)
}

// GetGallery handles GET /api/p/dreams/gallery
func (h *DreamHandler) GetGallery(c *fiber.Ctx) error {
	appID := tenant.GetAppID(c)
	if !h.registry.HasFeature(appID, tenant.FeatureGallery) {
		return errorJSON(c, fiber.StatusForbidden, ErrGalleryDisabled.Error())
	}

	filter := dream.GalleryFilter{
		Style:    c.Query("style"),
		Mood:     dream.Mood(c.Query("mood")),
		Category: dream.Category(c.Query("category")),
	}
	if filter.Mood != "" && !filter.Mood.Valid() {
		return errorJSON(c, fiber.StatusBadRequest, "unknown mood: "+string(filter.Mood))
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return errorJSON(c, fiber.StatusBadRequest, "unknown category: "+string(filter.Category))
	}
	order := dream.ParseGallerySort(c.Query("sort"))

	entries := h.sessions.Gallery(appID).Sorted(filter, order)
	return c.JSON(GalleryResponse{
		Data:   entries,
		Total:  len(entries),
		Sort:   order,
		Styles: h.styles(appID),
	})
}

// LikePublicDream handles POST /api/p/dreams/gallery/:id/like
func (h *DreamHandler) LikePublicDream(c *fiber.Ctx) error {
	appID := tenant.GetAppID(c)
	if !h.registry.HasFeature(appID, tenant.FeatureGallery) {
		return errorJSON(c, fiber.StatusForbidden, ErrGalleryDisabled.Error())
	}
	entry, ok := h.sessions.Gallery(appID).Like(c.Params("id"))
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, ErrEntryNotFound.Error())
	}
	return c.JSON(entry)
}

// ReportPublicDream handles POST /api/p/dreams/gallery/:id/report
func (h *DreamHandler) ReportPublicDream(c *fiber.Ctx) error {
	appID := tenant.GetAppID(c)
	userID, err := tenant.GetUserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	id := c.Params("id")
	if _, ok := h.sessions.Gallery(appID).Get(id); !ok {
		return errorJSON(c, fiber.StatusNotFound, ErrEntryNotFound.Error())
	}

	var req ReportRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	report, err := h.moderation.CreateReport(appID, userID, &dto.CreateReportRequest{
		ContentType: services.ContentTypePublicDream,
		ContentID:   id,
		Reason:      req.Reason,
	})
	switch {
	case errors.Is(err, services.ErrDuplicateReport):
		return errorJSON(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidReport):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	case err != nil:
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to file report")
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// RemovePublicDream handles DELETE /api/admin/dreams/gallery/:id
func (h *DreamHandler) RemovePublicDream(c *fiber.Ctx) error {
	if !h.sessions.Gallery(tenant.GetAppID(c)).Remove(c.Params("id")) {
		return errorJSON(c, fiber.StatusNotFound, ErrEntryNotFound.Error())
	}
	return c.JSON(fiber.Map{"message": "Public dream removed"})
}

// Stats handles GET /api/admin/dreams/stats
func (h *DreamHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"open_sessions": h.sessions.Len(),
		"gallery_size":  h.sessions.Gallery(tenant.GetAppID(c)).Len(),
		"ai_enabled":    h.service.Enabled(),
		"history_limit": dream.MaxHistoryEntries,
		"gallery_limit": dream.MaxPublicDreams,
	})
}
