// Package extract holds the stateless text scanners used to infer calendar
// and email actions from free-form assistant replies.
//
// Every scanner follows the same contract: candidate patterns are tried in a
// fixed priority order and the first one producing a non-empty capture wins.
package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// matcher tries one pattern and reports the capture, if any.
type matcher func(text string) (string, bool)

// firstMatch runs matchers in order and returns the first non-empty capture.
func firstMatch(text string, matchers []matcher) (string, bool) {
	for _, m := range matchers {
		if v, ok := m(text); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// capture builds a matcher returning the trimmed first submatch of re.
func capture(re *regexp.Regexp) matcher {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		v := strings.TrimSpace(m[1])
		return v, v != ""
	}
}

// TitleCase uppercases the first letter of every whitespace-delimited token
// and leaves the rest of each token untouched.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	atStart := true
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			atStart = true
		case atStart:
			r = unicode.ToUpper(r)
			atStart = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeApostrophes folds typographic apostrophes and quotes into their
// ASCII forms so phrase checks behave the same for "I’ll" and "I'll".
func NormalizeApostrophes(s string) string {
	return apostropheReplacer.Replace(s)
}

var apostropheReplacer = strings.NewReplacer("’", "'", "‘", "'")
