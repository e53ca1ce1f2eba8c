package services

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrReportNotFound  = errors.New("report not found")
	ErrContentRejected = errors.New("content rejected")
	ErrInvalidReport   = errors.New("invalid report")
	ErrDuplicateReport = errors.New("you have already reported this content")
)

const (
	ReportPending   = "pending"
	ReportReviewed  = "reviewed"
	ReportActioned  = "actioned"
	ReportDismissed = "dismissed"
)

var actionStatuses = map[string]bool{
	ReportReviewed:  true,
	ReportActioned:  true,
	ReportDismissed: true,
}

// TakedownFunc removes one item of reported content and reports whether it
// was still there.
type TakedownFunc func(appID, contentID string) bool

// ContentTypePublicDream marks reports filed against gallery entries.
const ContentTypePublicDream = "public_dream"

var reportContentTypes = map[string]bool{
	"user":                 true,
	ContentTypePublicDream: true,
}

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"ass", "asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"spam", "scam", "scammer", "phishing", "malware",
}

type ModerationService struct {
	db                  *gorm.DB
	bannedWordRegexps   []*regexp.Regexp
	urlPattern          *regexp.Regexp
	emailPattern        *regexp.Regexp
	phonePattern        *regexp.Regexp
	repeatedCharPattern *regexp.Regexp
	allCapsPattern      *regexp.Regexp
	compiled            bool
	takedowns           map[string]TakedownFunc
	mu                  sync.RWMutex
}

func NewModerationService(db *gorm.DB) *ModerationService {
	ms := &ModerationService{db: db}
	ms.compilePatterns()
	return ms
}

func (ms *ModerationService) compilePatterns() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.compiled {
		return
	}

	ms.bannedWordRegexps = make([]*regexp.Regexp, 0, len(BannedWords))
	for _, word := range BannedWords {
		pattern := `(?i)\b` + regexp.QuoteMeta(word) + `\b`
		re, err := regexp.Compile(pattern)
		if err == nil {
			ms.bannedWordRegexps = append(ms.bannedWordRegexps, re)
		}
	}

	ms.urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	ms.emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	ms.phonePattern = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)
	ms.repeatedCharPattern = regexp.MustCompile(`(?i)(a{4,}|b{4,}|c{4,}|d{4,}|e{4,}|f{4,}|g{4,}|h{4,}|i{4,}|j{4,}|k{4,}|l{4,}|m{4,}|n{4,}|o{4,}|p{4,}|q{4,}|r{4,}|s{4,}|t{4,}|u{4,}|v{4,}|w{4,}|x{4,}|y{4,}|z{4,}|!{4,}|\?{4,}|\.{4,})`)
	ms.allCapsPattern = regexp.MustCompile(`[A-Z]{5,}`)
	ms.compiled = true
}

func (ms *ModerationService) FilterContent(text string) (bool, string) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if text == "" {
		return true, ""
	}
	for _, re := range ms.bannedWordRegexps {
		if re.MatchString(text) {
			return false, "inappropriate_language"
		}
	}
	if ms.urlPattern.MatchString(text) {
		return false, "url_not_allowed"
	}
	if ms.emailPattern.MatchString(text) {
		return false, "contact_info_not_allowed"
	}
	if ms.phonePattern.MatchString(text) {
		return false, "contact_info_not_allowed"
	}
	if ms.repeatedCharPattern.MatchString(text) {
		return false, "spam_detected"
	}
	capsMatches := ms.allCapsPattern.FindAllString(text, -1)
	if len(capsMatches) > 2 {
		return false, "excessive_caps"
	}
	return true, ""
}

// CheckContent is FilterContent as an error, for callers that veto on failure.
func (ms *ModerationService) CheckContent(text string) error {
	if ok, reason := ms.FilterContent(text); !ok {
		return fmt.Errorf("%w: %s", ErrContentRejected, ms.GetRejectionMessage(reason))
	}
	return nil
}

func (ms *ModerationService) ContainsProfanity(text string) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	for _, re := range ms.bannedWordRegexps {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func (ms *ModerationService) GetRejectionMessage(reason string) string {
	messages := map[string]string{
		"inappropriate_language":   "Your dream contains inappropriate language.",
		"url_not_allowed":          "URLs and web links are not allowed.",
		"contact_info_not_allowed": "Contact information is not allowed.",
		"spam_detected":            "Your dream appears to be spam.",
		"excessive_caps":           "Please avoid using excessive capital letters.",
	}
	if msg, ok := messages[reason]; ok {
		return msg
	}
	return "Your dream does not meet our content guidelines."
}

// ReportFilter narrows ListReports. Empty fields match everything.
type ReportFilter struct {
	Status      string
	ContentType string
	Limit       int
	Offset      int
}

// OnTakedown registers fn to remove content of contentType when a report on
// it is actioned.
func (ms *ModerationService) OnTakedown(contentType string, fn TakedownFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.takedowns == nil {
		ms.takedowns = make(map[string]TakedownFunc)
	}
	ms.takedowns[contentType] = fn
}

func (ms *ModerationService) takedown(appID, contentType, contentID string) bool {
	ms.mu.RLock()
	fn, ok := ms.takedowns[contentType]
	ms.mu.RUnlock()
	if !ok {
		return false
	}
	return fn(appID, contentID)
}

func validateReport(req *dto.CreateReportRequest) error {
	if !reportContentTypes[req.ContentType] {
		return fmt.Errorf("%w: content_type must be user or public_dream", ErrInvalidReport)
	}
	if strings.TrimSpace(req.ContentID) == "" {
		return fmt.Errorf("%w: content_id is required", ErrInvalidReport)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return fmt.Errorf("%w: reason is required", ErrInvalidReport)
	}
	return nil
}

func (s *ModerationService) CreateReport(appID string, reporterID uuid.UUID, req *dto.CreateReportRequest) (*models.Report, error) {
	if err := validateReport(req); err != nil {
		return nil, err
	}

	var open int64
	if err := s.db.Model(&models.Report{}).
		Scopes(tenant.ForTenant(appID)).
		Where("reporter_id = ? AND content_type = ? AND content_id = ? AND status = ?",
			reporterID, req.ContentType, req.ContentID, ReportPending).
		Count(&open).Error; err != nil {
		return nil, fmt.Errorf("failed to check reports: %w", err)
	}
	if open > 0 {
		return nil, ErrDuplicateReport
	}

	report := models.Report{
		ID:          uuid.New(),
		AppID:       appID,
		ReporterID:  reporterID,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		Reason:      strings.TrimSpace(req.Reason),
		Status:      ReportPending,
	}

	if err := s.db.Create(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	slog.Info("report filed", "app_id", appID, "content_type", report.ContentType, "content_id", report.ContentID)
	return &report, nil
}

func (s *ModerationService) ListReports(appID string, f ReportFilter) ([]models.Report, int64, error) {
	var reports []models.Report
	var total int64

	query := s.db.Model(&models.Report{}).Scopes(tenant.ForTenant(appID))
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.ContentType != "" {
		query = query.Where("content_type = ?", f.ContentType)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

// ActionReport sets the status of a report. Actioning takes the reported
// content down through the registered takedown and settles every other
// pending report on the same content with it.
func (s *ModerationService) ActionReport(appID string, reportID uuid.UUID, req *dto.ActionReportRequest) (*dto.ActionReportResponse, error) {
	if !actionStatuses[req.Status] {
		return nil, fmt.Errorf("%w: status must be reviewed, actioned or dismissed", ErrInvalidReport)
	}

	var report models.Report
	if err := s.db.Scopes(tenant.ForTenant(appID)).First(&report, "id = ?", reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	updates := map[string]interface{}{
		"status":     req.Status,
		"admin_note": req.AdminNote,
	}
	if req.Status != ReportReviewed {
		updates["resolved_at"] = time.Now()
	}

	resp := &dto.ActionReportResponse{
		ReportID:    report.ID,
		Status:      req.Status,
		ContentType: report.ContentType,
		ContentID:   report.ContentID,
	}
	query := s.db.Model(&models.Report{}).Scopes(tenant.ForTenant(appID))
	if req.Status == ReportActioned {
		resp.Removed = s.takedown(appID, report.ContentType, report.ContentID)
		query = query.Where("content_type = ? AND content_id = ? AND (id = ? OR status = ?)",
			report.ContentType, report.ContentID, report.ID, ReportPending)
	} else {
		query = query.Where("id = ?", report.ID)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update report: %w", result.Error)
	}
	resp.Resolved = result.RowsAffected

	slog.Info("report actioned", "app_id", appID, "report_id", report.ID.String(), "status", req.Status, "removed", resp.Removed, "resolved", resp.Resolved)
	return resp, nil
}
