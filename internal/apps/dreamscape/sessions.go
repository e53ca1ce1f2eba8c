package dreamscape

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dream"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const openTimeout = 10 * time.Second

// PersisterFactory returns the snapshot persister for one app.
type PersisterFactory func(appID string) dream.Persister

type snapshotDeleter interface {
	DeleteSnapshot(ctx context.Context, key string) error
}

type sessionKey struct {
	appID  string
	userID uuid.UUID
}

// SessionManager hands out one dream.Store per app and user, opened from
// the persister on first use. Stores of one app share that app's gallery.
type SessionManager struct {
	mu          sync.Mutex
	opening     singleflight.Group
	stores      map[sessionKey]*dream.Store
	galleries   map[string]*dream.Gallery
	persisterFn PersisterFactory
	maxSessions int
	seed        bool
}

func NewSessionManager(persisterFn PersisterFactory, maxSessions int, seed bool) *SessionManager {
	return &SessionManager{
		stores:      make(map[sessionKey]*dream.Store),
		galleries:   make(map[string]*dream.Gallery),
		persisterFn: persisterFn,
		maxSessions: maxSessions,
		seed:        seed,
	}
}

// Gallery returns the app's gallery, creating and seeding it on first use.
func (m *SessionManager) Gallery(appID string) *dream.Gallery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.galleryLocked(appID)
}

func (m *SessionManager) galleryLocked(appID string) *dream.Gallery {
	g, ok := m.galleries[appID]
	if !ok {
		g = dream.NewGallery()
		if m.seed {
			SeedGallery(g)
		}
		m.galleries[appID] = g
	}
	return g
}

// Store returns the session of userID in appID.
func (m *SessionManager) Store(ctx context.Context, appID string, userID uuid.UUID) (*dream.Store, error) {
	key := sessionKey{appID: appID, userID: userID}

	m.mu.Lock()
	if s, ok := m.stores[key]; ok {
		m.mu.Unlock()
		return s, nil
	}
	gallery := m.galleryLocked(appID)
	m.mu.Unlock()

	v, err, _ := m.opening.Do(appID+"/"+userID.String(), func() (interface{}, error) {
		// Shared by every caller waiting on this key, so one of them going
		// away must not fail the rest.
		openCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), openTimeout)
		defer cancel()
		s, err := dream.Open(openCtx,
			dream.WithPersister(m.persisterFn(appID), userID.String()),
			dream.WithGallery(gallery),
		)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if existing, ok := m.stores[key]; ok {
			return existing, nil
		}
		if m.maxSessions > 0 && len(m.stores) >= m.maxSessions {
			m.evictLocked()
		}
		m.stores[key] = s
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open dream session: %w", err)
	}
	return v.(*dream.Store), nil
}

// evictLocked drops one idle cached session and closes it, so a stale copy
// can never write over the snapshot of a reopened one. Sessions with a
// generation in flight are skipped; when all are busy the cache grows past
// its limit until one settles.
func (m *SessionManager) evictLocked() {
	for k, s := range m.stores {
		if s.Pending() > 0 {
			continue
		}
		delete(m.stores, k)
		s.Close()
		return
	}
}

// Forget drops the cached session and its stored snapshot. The dropped
// store is closed first, so a generation still running against it cannot
// write the snapshot back.
func (m *SessionManager) Forget(ctx context.Context, appID string, userID uuid.UUID) {
	key := sessionKey{appID: appID, userID: userID}
	m.mu.Lock()
	s, ok := m.stores[key]
	delete(m.stores, key)
	m.mu.Unlock()
	if ok {
		s.Close()
	}

	if d, ok := m.persisterFn(appID).(snapshotDeleter); ok {
		if err := d.DeleteSnapshot(ctx, userID.String()); err != nil {
			slog.Error("failed to delete dream session", "app_id", appID, "user_id", userID.String(), "error", err)
		}
	}
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}
