package dreamscape

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dream"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DreamSession stores the persisted part of one user's dream session.
type DreamSession struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AppID     string         `gorm:"size:50;not null;uniqueIndex:idx_dream_session_app_user" json:"app_id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_dream_session_app_user" json:"user_id"`
	Namespace string         `gorm:"size:50;not null" json:"namespace"`
	Version   int            `gorm:"not null;default:1" json:"version"`
	State     datatypes.JSON `gorm:"type:jsonb;not null" json:"state"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (DreamSession) TableName() string {
	return "dream_sessions"
}

// VisualizeRequest is the body of both visualize endpoints. The session
// endpoint falls back to the stored draft for omitted fields.
type VisualizeRequest struct {
	Dream            string                  `json:"dream"`
	Style            string                  `json:"style"`
	LengthPreference *dream.LengthPreference `json:"lengthPreference,omitempty"`
	Temperature      *float64                `json:"temperature,omitempty"`
	AspectRatio      *dream.AspectRatio      `json:"aspectRatio,omitempty"`
}

// VisualizeResponse is the stateless generation contract.
type VisualizeResponse struct {
	ImageURL     string `json:"imageUrl"`
	AnalysisText string `json:"analysisText"`
}

// VisualizeErrorResponse is the error body of the stateless contract.
type VisualizeErrorResponse struct {
	Error string `json:"error"`
}

// SessionVisualizeResponse is returned by the session visualize endpoint.
type SessionVisualizeResponse struct {
	Result dream.GenerationResult `json:"result"`
	Entry  *dream.HistoryEntry    `json:"entry,omitempty"`
	Stale  bool                   `json:"stale"`
	Failed bool                   `json:"failed"`
}

type ShareRequest struct {
	Region string `json:"region"`
}

type ReportRequest struct {
	Reason string `json:"reason"`
}

type GalleryResponse struct {
	Data   []dream.PublicDreamEntry `json:"data"`
	Total  int                      `json:"total"`
	Sort   dream.GallerySort        `json:"sort"`
	Styles []string                 `json:"styles,omitempty"`
}
