package dream

import (
	"context"
	"errors"
	"sync"
)

const (
	SnapshotNamespace = "dreamscape-store"
	SnapshotVersion   = 1
)

// ErrSnapshotNotFound is returned by a Persister that has nothing stored
// under the requested key.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the persisted subset of a Store. Loading flag, current result,
// gallery and share prompt are transient and never written.
type Snapshot struct {
	Namespace string         `json:"namespace"`
	Version   int            `json:"version"`
	Draft     Draft          `json:"draft"`
	History   []HistoryEntry `json:"history"`
	Settings  UserSettings   `json:"settings"`
}

// Persister stores snapshots keyed by session.
type Persister interface {
	LoadSnapshot(ctx context.Context, key string) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, key string, snap Snapshot) error
}

// MemoryPersister keeps snapshots in a map. Used by tests and by servers
// running without a database.
type MemoryPersister struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
	saves int
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{snaps: make(map[string]Snapshot)}
}

func (m *MemoryPersister) LoadSnapshot(_ context.Context, key string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[key]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	snap.History = append([]HistoryEntry(nil), snap.History...)
	return &snap, nil
}

func (m *MemoryPersister) SaveSnapshot(_ context.Context, key string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.History = append([]HistoryEntry(nil), snap.History...)
	m.snaps[key] = snap
	m.saves++
	return nil
}

func (m *MemoryPersister) DeleteSnapshot(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, key)
	return nil
}

// Saves reports how many snapshots have been written.
func (m *MemoryPersister) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
