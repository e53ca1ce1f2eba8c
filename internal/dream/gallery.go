package dream

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GalleryFilter constrains gallery listings. Zero-valued fields match
// everything.
type GalleryFilter struct {
	Style    string
	Mood     Mood
	Category Category
}

func (f GalleryFilter) Matches(e PublicDreamEntry) bool {
	if f.Style != "" && e.Style != f.Style {
		return false
	}
	if f.Mood != "" && e.Mood != f.Mood {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	return true
}

type GallerySort string

const (
	SortRecent  GallerySort = "recent"
	SortPopular GallerySort = "popular"
)

// ParseGallerySort maps a query value to a sort order, defaulting to recent.
func ParseGallerySort(s string) GallerySort {
	if GallerySort(s) == SortPopular {
		return SortPopular
	}
	return SortRecent
}

// Gallery is the bounded, newest-first list of shared dreams. One Gallery is
// shared by every Store of a process and is never persisted.
type Gallery struct {
	mu      sync.RWMutex
	entries []PublicDreamEntry
	now     func() time.Time
	newID   func() string
}

func NewGallery() *Gallery {
	return &Gallery{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Add stores a copy of entry with a fresh id, zero likes and the anonymous
// flag set. CreatedAt is stamped when the caller left it zero.
func (g *Gallery) Add(entry PublicDreamEntry) PublicDreamEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry.ID = g.newID()
	entry.Likes = 0
	entry.IsAnonymous = true
	entry.DreamText = TruncateRunes(entry.DreamText, MaxPublicDreamText)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = g.now()
	}
	g.entries = ApplyGalleryRetention(g.entries, entry)
	return entry
}

// Like adds exactly one like. Repeated calls keep counting.
func (g *Gallery) Like(id string) (PublicDreamEntry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := range g.entries {
		if g.entries[i].ID == id {
			g.entries[i].Likes++
			return g.entries[i], true
		}
	}
	return PublicDreamEntry{}, false
}

func (g *Gallery) Get(id string) (PublicDreamEntry, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, e := range g.entries {
		if e.ID == id {
			return e, true
		}
	}
	return PublicDreamEntry{}, false
}

// Remove takes an entry down. Only moderation uses it.
func (g *Gallery) Remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, e := range g.entries {
		if e.ID == id {
			g.entries = slices.Delete(slices.Clone(g.entries), i, i+1)
			return true
		}
	}
	return false
}

func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// Filter returns the matching entries in their stored order.
func (g *Gallery) Filter(f GalleryFilter) []PublicDreamEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]PublicDreamEntry, 0, len(g.entries))
	for _, e := range g.entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Sorted filters, then orders by recency or likes. Ties keep stored order.
func (g *Gallery) Sorted(f GalleryFilter, order GallerySort) []PublicDreamEntry {
	out := g.Filter(f)
	switch order {
	case SortPopular:
		slices.SortStableFunc(out, func(a, b PublicDreamEntry) int {
			return cmp.Compare(b.Likes, a.Likes)
		})
	default:
		slices.SortStableFunc(out, func(a, b PublicDreamEntry) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
	return out
}
