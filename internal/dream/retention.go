package dream

import (
	"math"
	"strings"
)

// Retention limits for session state and the public gallery.
const (
	MaxHistoryEntries      = 20
	MaxInlineImages        = 5
	MaxDreamTextLength     = 2000
	MaxAnalysisTextLength  = 4000
	MaxPublicDreams        = 100
	MaxPublicDreamText     = 150
	MaxAnonymizedDreamText = 100
)

const inlineImagePrefix = "data:"

// IsInlineImage reports whether the URL embeds the image bytes.
func IsInlineImage(url string) bool {
	return strings.HasPrefix(url, inlineImagePrefix)
}

// TruncateRunes cuts s to at most limit code points.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// ClampTemperature keeps t inside [0, 1].
func ClampTemperature(t float64) float64 {
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// SanitizeResult applies the text caps to a result about to be archived.
func SanitizeResult(r GenerationResult) GenerationResult {
	r.AnalysisText = TruncateRunes(r.AnalysisText, MaxAnalysisTextLength)
	return r
}

// ApplyImageQuota clears inline image payloads on every entry past the first
// MaxInlineImages that hold one. list must be newest first; the input is not
// modified.
func ApplyImageQuota(list []HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, len(list))
	inline := 0
	for i, e := range list {
		if IsInlineImage(e.Result.ImageURL) {
			inline++
			if inline > MaxInlineImages {
				e.Result.ImageURL = ""
			}
		}
		out[i] = e
	}
	return out
}

// ApplyHistoryRetention prepends incoming, enforces the inline image quota
// and drops the oldest entries beyond MaxHistoryEntries.
func ApplyHistoryRetention(list []HistoryEntry, incoming HistoryEntry) []HistoryEntry {
	next := make([]HistoryEntry, 0, len(list)+1)
	next = append(next, incoming)
	next = append(next, list...)
	next = ApplyImageQuota(next)
	if len(next) > MaxHistoryEntries {
		next = next[:MaxHistoryEntries]
	}
	return next
}

// ApplyGalleryRetention prepends incoming and drops the oldest entries beyond
// MaxPublicDreams.
func ApplyGalleryRetention(list []PublicDreamEntry, incoming PublicDreamEntry) []PublicDreamEntry {
	next := make([]PublicDreamEntry, 0, len(list)+1)
	next = append(next, incoming)
	next = append(next, list...)
	if len(next) > MaxPublicDreams {
		next = next[:MaxPublicDreams]
	}
	return next
}
