package dreamscape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dream"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPersister keeps dream snapshots in the dream_sessions table, one row
// per app and user.
type GormPersister struct {
	db    *gorm.DB
	appID string
}

func NewGormPersister(db *gorm.DB, appID string) *GormPersister {
	return &GormPersister{db: db, appID: appID}
}

func (p *GormPersister) LoadSnapshot(ctx context.Context, key string) (*dream.Snapshot, error) {
	userID, err := uuid.Parse(key)
	if err != nil {
		return nil, fmt.Errorf("invalid session key: %w", err)
	}

	var row DreamSession
	err = p.db.WithContext(ctx).
		Scopes(tenant.ForUser(p.appID, userID)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dream.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dream session: %w", err)
	}

	var snap dream.Snapshot
	if err := json.Unmarshal(row.State, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode dream session: %w", err)
	}
	snap.Namespace = row.Namespace
	snap.Version = row.Version
	return &snap, nil
}

func (p *GormPersister) SaveSnapshot(ctx context.Context, key string, snap dream.Snapshot) error {
	userID, err := uuid.Parse(key)
	if err != nil {
		return fmt.Errorf("invalid session key: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode dream session: %w", err)
	}

	row := DreamSession{
		ID:        uuid.New(),
		AppID:     p.appID,
		UserID:    userID,
		Namespace: snap.Namespace,
		Version:   snap.Version,
		State:     datatypes.JSON(data),
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "app_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"namespace", "version", "state", "updated_at"}),
	}).Create(&row).Error
}

// DeleteSnapshot removes the stored session of a user.
func (p *GormPersister) DeleteSnapshot(ctx context.Context, key string) error {
	userID, err := uuid.Parse(key)
	if err != nil {
		return fmt.Errorf("invalid session key: %w", err)
	}
	return p.db.WithContext(ctx).
		Scopes(tenant.ForUser(p.appID, userID)).
		Delete(&DreamSession{}).Error
}
