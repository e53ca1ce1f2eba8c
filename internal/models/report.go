package models

import (
	"time"

	"github.com/google/uuid"
)

// Report is a user complaint about shared content. Reports on the same item
// are settled together when an admin takes the item down.
type Report struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AppID       string     `gorm:"size:50;not null;index:idx_reports_content,priority:1" json:"-"`
	ReporterID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"reporter_id"`
	ContentType string     `gorm:"not null;size:50;index:idx_reports_content,priority:2" json:"content_type"`
	ContentID   string     `gorm:"not null;size:255;index:idx_reports_content,priority:3" json:"content_id"`
	Reason      string     `gorm:"not null;size:500" json:"reason"`
	Status      string     `gorm:"not null;default:'pending';size:50;index" json:"status"`
	AdminNote   string     `gorm:"size:1000" json:"admin_note,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Reporter    User       `gorm:"foreignKey:ReporterID" json:"-"`
}
