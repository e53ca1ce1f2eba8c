package dream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// GenerationFailedMessage replaces the analysis text when a generation call
// fails. There is no separate error field in the result.
const GenerationFailedMessage = "Something went wrong. Please try again."

const persistTimeout = 5 * time.Second

var ErrNothingToShare = errors.New("current result has no image, mood or category to share")

// Listener receives a copy of the state after every change.
type Listener func(State)

// Ticket identifies one generation request. Only the most recently issued
// ticket may update the loading flag and current result.
type Ticket struct {
	seq   uint64
	Draft Draft
}

// Completion describes how FinishGeneration applied a result.
type Completion struct {
	Result GenerationResult
	Entry  *HistoryEntry
	Stale  bool
}

// ShareOptions tune ShareCurrentDream. Screen, when set, sees the final text
// and may veto the share by returning an error.
type ShareOptions struct {
	Region string
	Screen func(text string) error
}

// Store is the per-session state container. All methods are safe for
// concurrent use. Every mutation is applied atomically and, when it touches
// the persisted subset, written through the persister before returning.
// Writes happen outside the state lock and never go backwards: a snapshot
// older than the last one written is dropped.
type Store struct {
	mu        sync.Mutex
	state     State
	seq       uint64
	pending   int
	rev       uint64
	gallery   *Gallery
	persister Persister
	key       string
	now       func() time.Time
	newID     func() string

	listenerSeq int
	listeners   map[int]Listener

	writeMu sync.Mutex
	written uint64
	closed  atomic.Bool
}

type Option func(*Store)

// WithPersister writes the persisted subset under key after each mutation.
func WithPersister(p Persister, key string) Option {
	return func(s *Store) {
		s.persister = p
		s.key = key
	}
}

// WithGallery attaches a shared gallery. Without it the store owns a private
// one.
func WithGallery(g *Gallery) Option {
	return func(s *Store) { s.gallery = g }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore returns a store holding the default draft and settings.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state:     initialState(),
		now:       time.Now,
		newID:     uuid.NewString,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gallery == nil {
		s.gallery = NewGallery()
	}
	return s
}

// Open builds a store and restores the last persisted snapshot, if any.
func Open(ctx context.Context, opts ...Option) (*Store, error) {
	s := NewStore(opts...)
	if s.persister == nil {
		return s, nil
	}
	snap, err := s.persister.LoadSnapshot(ctx, s.key)
	if errors.Is(err, ErrSnapshotNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dream session %q: %w", s.key, err)
	}
	if snap.Namespace != SnapshotNamespace || snap.Version > SnapshotVersion {
		slog.Warn("ignoring incompatible dream snapshot", "key", s.key, "namespace", snap.Namespace, "version", snap.Version)
		return s, nil
	}
	s.mu.Lock()
	s.state = restoreState(*snap)
	s.mu.Unlock()
	return s, nil
}

func initialState() State {
	return State{
		Draft:    DefaultDraft(),
		History:  []HistoryEntry{},
		Settings: DefaultSettings(),
	}
}

func restoreState(snap Snapshot) State {
	st := initialState()
	st.Draft = snap.Draft
	st.Temperature = ClampTemperature(st.Temperature)
	history := ApplyImageQuota(snap.History)
	if len(history) > MaxHistoryEntries {
		history = history[:MaxHistoryEntries]
	}
	st.History = history
	st.Settings = snap.Settings
	return st
}

func (s *Store) Gallery() *Gallery { return s.gallery }

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	st := s.state
	st.History = slices.Clone(s.state.History)
	return st
}

// Snapshot returns the persisted subset of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Namespace: SnapshotNamespace,
		Version:   SnapshotVersion,
		Draft:     s.state.Draft,
		History:   slices.Clone(s.state.History),
		Settings:  s.state.Settings,
	}
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listenerSeq++
	id := s.listenerSeq
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// mutate runs fn under the lock. fn reports whether it changed anything and
// whether the change touched the persisted subset. Listeners run after the
// lock is released.
func (s *Store) mutate(fn func(st *State) (changed, persist bool)) {
	s.mu.Lock()
	changed, persist := fn(&s.state)
	if !changed {
		s.mu.Unlock()
		return
	}
	var (
		rev  uint64
		snap Snapshot
	)
	persist = persist && s.persister != nil
	if persist {
		s.rev++
		rev = s.rev
		snap = s.snapshotLocked()
	}
	st := s.stateLocked()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if persist {
		s.write(rev, snap)
	}
	for _, l := range listeners {
		l(st)
	}
}

// write saves snap unless a newer revision already went out or the store
// has been closed.
func (s *Store) write(rev uint64, snap Snapshot) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed.Load() || rev <= s.written {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.persister.SaveSnapshot(ctx, s.key, snap); err != nil {
		slog.Error("failed to persist dream session", "key", s.key, "error", err)
		return
	}
	s.written = rev
}

// Close detaches the store from its persister. It waits for a write in
// progress to finish; later mutations still apply in memory but are never
// saved. Closing twice is a no-op.
func (s *Store) Close() {
	s.closed.Store(true)
	// Wait out a write that started before the flag was set.
	s.writeMu.Lock()
	s.writeMu.Unlock()
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool { return s.closed.Load() }

// Pending reports how many generations have begun and not yet finished.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Store) SetDreamText(text string) {
	s.mutate(func(st *State) (bool, bool) {
		st.DreamText = text
		return true, true
	})
}

func (s *Store) SetStyle(style string) {
	s.mutate(func(st *State) (bool, bool) {
		st.Style = style
		return true, true
	})
}

func (s *Store) SetLengthPreference(l LengthPreference) {
	s.mutate(func(st *State) (bool, bool) {
		st.LengthPreference = l
		return true, true
	})
}

// SetTemperature stores t clamped to [0, 1].
func (s *Store) SetTemperature(t float64) {
	s.mutate(func(st *State) (bool, bool) {
		st.Temperature = ClampTemperature(t)
		return true, true
	})
}

func (s *Store) SetAspectRatio(a AspectRatio) {
	s.mutate(func(st *State) (bool, bool) {
		st.AspectRatio = a
		return true, true
	})
}

// UpdateDraft applies every non-nil field of p in one mutation.
func (s *Store) UpdateDraft(p DraftPatch) {
	s.mutate(func(st *State) (bool, bool) {
		if p.DreamText != nil {
			st.DreamText = *p.DreamText
		}
		if p.Style != nil {
			st.Style = *p.Style
		}
		if p.LengthPreference != nil {
			st.LengthPreference = *p.LengthPreference
		}
		if p.Temperature != nil {
			st.Temperature = ClampTemperature(*p.Temperature)
		}
		if p.AspectRatio != nil {
			st.AspectRatio = *p.AspectRatio
		}
		return true, true
	})
}

func (s *Store) SetLoading(loading bool) {
	s.mutate(func(st *State) (bool, bool) {
		st.IsLoading = loading
		return true, false
	})
}

func (s *Store) SetResult(r GenerationResult) {
	s.mutate(func(st *State) (bool, bool) {
		st.Result = r
		return true, false
	})
}

func (s *Store) UpdateSettings(settings UserSettings) {
	s.mutate(func(st *State) (bool, bool) {
		st.Settings = settings
		return true, true
	})
}

func (s *Store) OpenSharePrompt() {
	s.mutate(func(st *State) (bool, bool) {
		st.ShowShareModal = true
		return true, false
	})
}

func (s *Store) CloseSharePrompt() {
	s.mutate(func(st *State) (bool, bool) {
		st.ShowShareModal = false
		return true, false
	})
}

// BeginGeneration marks the session as loading and issues a ticket carrying
// the draft as it was when the request started.
func (s *Store) BeginGeneration() Ticket {
	var t Ticket
	s.mutate(func(st *State) (bool, bool) {
		s.seq++
		s.pending++
		t = Ticket{seq: s.seq, Draft: st.Draft}
		st.IsLoading = true
		return true, false
	})
	return t
}

// FinishGeneration records the outcome of the request identified by t.
// Successful results are archived even when a newer request has been issued
// since, but only the newest request updates IsLoading and Result.
func (s *Store) FinishGeneration(t Ticket, r GenerationResult, genErr error) Completion {
	var c Completion
	s.mutate(func(st *State) (bool, bool) {
		if s.pending > 0 {
			s.pending--
		}
		latest := t.seq == s.seq
		c.Stale = !latest
		if genErr != nil {
			c.Result = GenerationResult{AnalysisText: GenerationFailedMessage}
			if latest {
				st.IsLoading = false
				st.Result = c.Result
			}
			return latest, false
		}

		entry := s.archiveLocked(st, t.Draft, r)
		c.Entry = &entry
		c.Result = r
		c.Result.Mood = entry.Mood
		c.Result.Category = entry.Category
		if latest {
			st.IsLoading = false
			st.Result = c.Result
		}
		return true, true
	})
	return c
}

// AddToHistory archives a generation made from draft d.
func (s *Store) AddToHistory(d Draft, r GenerationResult) HistoryEntry {
	var entry HistoryEntry
	s.mutate(func(st *State) (bool, bool) {
		entry = s.archiveLocked(st, d, r)
		if st.Result.ImageURL == r.ImageURL && st.Result.AnalysisText == r.AnalysisText && !r.IsEmpty() {
			st.Result.Mood = entry.Mood
			st.Result.Category = entry.Category
		}
		return true, true
	})
	return entry
}

func (s *Store) archiveLocked(st *State, d Draft, r GenerationResult) HistoryEntry {
	dreamText := TruncateRunes(d.DreamText, MaxDreamTextLength)
	mood := ClassifyMood(dreamText)
	category := ClassifyCategory(dreamText)

	result := SanitizeResult(r)
	result.Mood = mood
	result.Category = category

	entry := HistoryEntry{
		ID:               s.newID(),
		CreatedAt:        s.now(),
		DreamText:        dreamText,
		Style:            d.Style,
		LengthPreference: d.LengthPreference,
		Temperature:      ClampTemperature(d.Temperature),
		AspectRatio:      d.AspectRatio,
		Result:           result,
		Mood:             mood,
		Category:         category,
	}
	st.History = ApplyHistoryRetention(st.History, entry)
	return entry
}

// HistoryEntry looks up an archived entry by id.
func (s *Store) HistoryEntry(id string) (HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.state.History {
		if e.ID == id {
			return e, true
		}
	}
	return HistoryEntry{}, false
}

// LoadFromHistory copies the entry's draft fields and result back into the
// current draft and result. History itself is untouched.
func (s *Store) LoadFromHistory(e HistoryEntry) {
	s.mutate(func(st *State) (bool, bool) {
		st.Draft = e.Draft()
		st.Temperature = ClampTemperature(st.Temperature)
		st.Result = e.Result
		return true, true
	})
}

// RemoveHistoryItem drops the entry with the given id. Unknown ids are a
// no-op and report false.
func (s *Store) RemoveHistoryItem(id string) bool {
	removed := false
	s.mutate(func(st *State) (bool, bool) {
		for i, e := range st.History {
			if e.ID == id {
				next := make([]HistoryEntry, 0, len(st.History)-1)
				next = append(next, st.History[:i]...)
				st.History = append(next, st.History[i+1:]...)
				removed = true
				return true, true
			}
		}
		return false, false
	})
	return removed
}

func (s *Store) ClearHistory() {
	s.mutate(func(st *State) (bool, bool) {
		st.History = []HistoryEntry{}
		return true, true
	})
}

// ClearCurrent empties the dream text and result. Style, parameters and
// settings stay.
func (s *Store) ClearCurrent() {
	s.mutate(func(st *State) (bool, bool) {
		st.DreamText = ""
		st.Result = GenerationResult{}
		return true, true
	})
}

// Reset returns the session to its initial state and persists that.
func (s *Store) Reset() {
	s.mutate(func(st *State) (bool, bool) {
		*st = initialState()
		return true, true
	})
}

func (s *Store) AddPublicDream(e PublicDreamEntry) PublicDreamEntry {
	return s.gallery.Add(e)
}

func (s *Store) LikePublicDream(id string) (PublicDreamEntry, bool) {
	return s.gallery.Like(id)
}

func (s *Store) FilteredPublicDreams(f GalleryFilter) []PublicDreamEntry {
	return s.gallery.Filter(f)
}

func (s *Store) SortedPublicDreams(f GalleryFilter, order GallerySort) []PublicDreamEntry {
	return s.gallery.Sorted(f, order)
}

// ShareCurrentDream publishes the current result to the gallery and closes
// the share prompt. It requires an image, a mood and a category.
func (s *Store) ShareCurrentDream(opts ShareOptions) (PublicDreamEntry, error) {
	var (
		shared PublicDreamEntry
		err    error
	)
	s.mutate(func(st *State) (bool, bool) {
		r := st.Result
		if r.ImageURL == "" || r.Mood == "" || r.Category == "" {
			err = ErrNothingToShare
			return false, false
		}
		text := st.DreamText
		if st.Settings.AnonymizeText {
			text = Anonymize(text)
		}
		if opts.Screen != nil {
			if err = opts.Screen(text); err != nil {
				return false, false
			}
		}
		shared = s.gallery.Add(PublicDreamEntry{
			DreamText:   text,
			ImageURL:    r.ImageURL,
			Style:       st.Style,
			Mood:        r.Mood,
			Category:    r.Category,
			AspectRatio: st.AspectRatio,
			Region:      opts.Region,
		})
		st.ShowShareModal = false
		return true, false
	})
	return shared, err
}
