package logging

import (
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/models"
	"gorm.io/gorm"
)

const cleanupInterval = 24 * time.Hour

// StartCleanup purges system_logs older than retentionDays once at startup
// and then daily, until done is closed.
func StartCleanup(db *gorm.DB, retentionDays int, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			purgeLogs(db, retentionCutoff(time.Now(), retentionDays), retentionDays)
			select {
			case <-ticker.C:
			case <-done:
				return
			}
		}
	}()
}

func retentionCutoff(now time.Time, retentionDays int) time.Time {
	return now.AddDate(0, 0, -retentionDays)
}

func purgeLogs(db *gorm.DB, cutoff time.Time, retentionDays int) {
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	switch {
	case result.Error != nil:
		slog.Error("log cleanup failed", "error", result.Error)
	case result.RowsAffected > 0:
		slog.Info("log cleanup completed", "deleted", result.RowsAffected, "retention_days", retentionDays)
	}
}
