// Package dream holds the dream classification heuristic and the per-session
// state container (draft, generation lifecycle, history, shared gallery).
package dream

import "time"

type LengthPreference string

const (
	LengthShort  LengthPreference = "short"
	LengthMedium LengthPreference = "medium"
	LengthLong   LengthPreference = "long"
)

func (l LengthPreference) Valid() bool {
	switch l {
	case LengthShort, LengthMedium, LengthLong:
		return true
	}
	return false
}

type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
)

func (a AspectRatio) Valid() bool {
	switch a {
	case AspectSquare, AspectLandscape, AspectPortrait:
		return true
	}
	return false
}

// Draft defaults applied to a fresh session.
const (
	DefaultStyle            = "Surrealism"
	DefaultLengthPreference = LengthMedium
	DefaultTemperature      = 0.7
	DefaultAspectRatio      = AspectLandscape
)

// GenerationResult is what the generation endpoint returns. Mood and
// Category are attached when the result is archived.
type GenerationResult struct {
	ImageURL     string   `json:"imageUrl,omitempty"`
	AnalysisText string   `json:"analysisText,omitempty"`
	Mood         Mood     `json:"mood,omitempty"`
	Category     Category `json:"category,omitempty"`
}

func (r GenerationResult) IsEmpty() bool {
	return r == GenerationResult{}
}

// Draft is the in-progress user input.
type Draft struct {
	DreamText        string           `json:"dreamText"`
	Style            string           `json:"style"`
	LengthPreference LengthPreference `json:"lengthPreference"`
	Temperature      float64          `json:"temperature"`
	AspectRatio      AspectRatio      `json:"aspectRatio"`
}

// DefaultDraft returns the draft a new session starts with.
func DefaultDraft() Draft {
	return Draft{
		Style:            DefaultStyle,
		LengthPreference: DefaultLengthPreference,
		Temperature:      DefaultTemperature,
		AspectRatio:      DefaultAspectRatio,
	}
}

// DraftPatch updates only the non-nil fields of a Draft.
type DraftPatch struct {
	DreamText        *string           `json:"dreamText"`
	Style            *string           `json:"style"`
	LengthPreference *LengthPreference `json:"lengthPreference"`
	Temperature      *float64          `json:"temperature"`
	AspectRatio      *AspectRatio      `json:"aspectRatio"`
}

// HistoryEntry is an archived generation. Entries are never edited in place;
// retention produces modified copies.
type HistoryEntry struct {
	ID               string           `json:"id"`
	CreatedAt        time.Time        `json:"createdAt"`
	DreamText        string           `json:"dreamText"`
	Style            string           `json:"style"`
	LengthPreference LengthPreference `json:"lengthPreference"`
	Temperature      float64          `json:"temperature"`
	AspectRatio      AspectRatio      `json:"aspectRatio"`
	Result           GenerationResult `json:"result"`
	Mood             Mood             `json:"mood"`
	Category         Category         `json:"category"`
}

func (e HistoryEntry) Draft() Draft {
	return Draft{
		DreamText:        e.DreamText,
		Style:            e.Style,
		LengthPreference: e.LengthPreference,
		Temperature:      e.Temperature,
		AspectRatio:      e.AspectRatio,
	}
}

// PublicDreamEntry is an opt-in, anonymized gallery entry.
type PublicDreamEntry struct {
	ID          string      `json:"id"`
	DreamText   string      `json:"dreamText"`
	ImageURL    string      `json:"imageUrl"`
	Style       string      `json:"style"`
	Mood        Mood        `json:"mood"`
	Category    Category    `json:"category"`
	CreatedAt   time.Time   `json:"createdAt"`
	Likes       int         `json:"likes"`
	AspectRatio AspectRatio `json:"aspectRatio"`
	IsAnonymous bool        `json:"isAnonymous"`
	Region      string      `json:"region,omitempty"`
}

type UserSettings struct {
	SharePublicly bool `json:"sharePublicly"`
	AnonymizeText bool `json:"anonymizeText"`
	AllowLikes    bool `json:"allowLikes"`
	ShowInGallery bool `json:"showInGallery"`
}

func DefaultSettings() UserSettings {
	return UserSettings{
		AnonymizeText: true,
		AllowLikes:    true,
		ShowInGallery: true,
	}
}

// State is a point-in-time copy of everything a Store holds.
type State struct {
	Draft
	IsLoading      bool             `json:"isLoading"`
	Result         GenerationResult `json:"result"`
	History        []HistoryEntry   `json:"history"`
	Settings       UserSettings     `json:"settings"`
	ShowShareModal bool             `json:"showShareModal"`
}
