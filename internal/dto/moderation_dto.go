package dto

import (
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/models"
	"github.com/google/uuid"
)

type CreateReportRequest struct {
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
	Reason      string `json:"reason"`
}

type ActionReportRequest struct {
	Status    string `json:"status"`
	AdminNote string `json:"admin_note"`
}

type ReportListResponse struct {
	Reports []models.Report `json:"reports"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ActionReportResponse tells the admin what an action did. Removed is true
// when the reported item was taken down, and Resolved counts the reports
// settled, including the one acted on.
type ActionReportResponse struct {
	ReportID    uuid.UUID `json:"report_id"`
	Status      string    `json:"status"`
	ContentType string    `json:"content_type"`
	ContentID   string    `json:"content_id"`
	Removed     bool      `json:"removed"`
	Resolved    int64     `json:"resolved"`
}
