package handlers

import (
	"errors"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultReportPage = 20
	maxReportPage     = 100
)

type reportService interface {
	CreateReport(appID string, reporterID uuid.UUID, req *dto.CreateReportRequest) (*models.Report, error)
	ListReports(appID string, f services.ReportFilter) ([]models.Report, int64, error)
	ActionReport(appID string, reportID uuid.UUID, req *dto.ActionReportRequest) (*dto.ActionReportResponse, error)
}

// ModerationHandler serves user reports against shared dreams and the admin
// queue that resolves them.
type ModerationHandler struct {
	reports reportService
}

func NewModerationHandler(reports reportService) *ModerationHandler {
	return &ModerationHandler{reports: reports}
}

func moderationError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Failed to process report"
	switch {
	case errors.Is(err, services.ErrInvalidReport):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrDuplicateReport):
		status, message = fiber.StatusConflict, err.Error()
	case errors.Is(err, services.ErrReportNotFound):
		status, message = fiber.StatusNotFound, err.Error()
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

// pageParams reads limit and offset, falling back to the default page for
// anything missing or out of range.
func pageParams(c *fiber.Ctx) (limit, offset int) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultReportPage
	}
	if limit > maxReportPage {
		limit = maxReportPage
	}
	offset, err = strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// CreateReport handles POST /api/reports
func (h *ModerationHandler) CreateReport(c *fiber.Ctx) error {
	appID := tenant.GetAppID(c)
	userID, err := tenant.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	report, err := h.reports.CreateReport(appID, userID, &req)
	if err != nil {
		return moderationError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// ListReports handles GET /api/admin/moderation/reports
func (h *ModerationHandler) ListReports(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	filter := services.ReportFilter{
		Status:      c.Query("status"),
		ContentType: c.Query("content_type"),
		Limit:       limit,
		Offset:      offset,
	}

	reports, total, err := h.reports.ListReports(tenant.GetAppID(c), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch reports",
		})
	}
	if reports == nil {
		reports = []models.Report{}
	}

	return c.JSON(dto.ReportListResponse{
		Reports: reports,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// ActionReport handles PUT /api/admin/moderation/reports/:id
func (h *ModerationHandler) ActionReport(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid report ID",
		})
	}

	var req dto.ActionReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	resp, err := h.reports.ActionReport(tenant.GetAppID(c), reportID, &req)
	if err != nil {
		return moderationError(c, err)
	}
	return c.JSON(resp)
}
