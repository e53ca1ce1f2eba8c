package dream

import (
	"regexp"
	"unicode/utf8"
)

// Best-effort only: misses lowercase names and single capitalized words,
// and also rewrites ordinary title-case phrases.
var (
	capitalizedBigram = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)
	firstPerson       = regexp.MustCompile(`(?i)\b(my|i|me|mine)\b`)
)

const anonymousSubject = "someone"

// Anonymize replaces capitalized two-word sequences and first-person
// pronouns with "someone" and cuts the result to MaxAnonymizedDreamText
// runes. The ellipsis is appended when the text as written was longer than
// that, whatever the substitutions did to its length.
func Anonymize(text string) string {
	out := capitalizedBigram.ReplaceAllString(text, anonymousSubject)
	out = firstPerson.ReplaceAllString(out, anonymousSubject)
	out = TruncateRunes(out, MaxAnonymizedDreamText)
	if utf8.RuneCountInString(text) > MaxAnonymizedDreamText {
		out += "..."
	}
	return out
}
