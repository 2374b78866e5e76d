package extract

import (
	"regexp"
	"strings"
)

// Stop words end a name captured after "called" or an action verb.
const (
	titledStop = `for|on|at|tomorrow|today|tonight|next|this|from`
	verbStop   = `for|on|at|tomorrow|today|next|this|event|from`
)

var (
	// A single quote only counts when it is not glued to a word, so the
	// apostrophe in "I'll" never opens a quoted title.
	singleQuotedRe = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])'([^']+)'(?:[^\p{L}\p{N}]|$)`)
	doubleQuotedRe = regexp.MustCompile(`["“]([^"”]+)["”]`)
	titledRe       = regexp.MustCompile(`(?i)\b(?:titled|called|named)\s+(.+?)(?:\s+(?:` + titledStop + `)\b|[.,!?;:\n]|$)`)
	actionVerbRe   = regexp.MustCompile(`(?i)\b(?:create|schedule|set up|book|add)\s+(?:(?:an?|the)\s+)?(?:new\s+)?(.+?)(?:\s+(?:` + verbStop + `)\b|[.,!?;:\n]|$)`)
)

var nameMatchers = []matcher{
	capture(singleQuotedRe),
	capture(doubleQuotedRe),
	capture(titledRe),
	capture(actionVerbRe),
}

// QuotedOrTitledName finds an event name in assistant text. Quoted names win
// over "titled"/"called" phrases, which win over the object of an action
// verb. Returns "" when nothing matches.
func QuotedOrTitledName(text string) string {
	v, _ := firstMatch(text, nameMatchers)
	return v
}

// placeholderTitles are captures that name the kind of thing rather than
// the thing itself.
var placeholderTitles = map[string]bool{
	"event":     true,
	"new event": true,
	"an event":  true,
	"it":        true,
	"this":      true,
	"that":      true,
}

// IsPlaceholderTitle reports whether a captured name is a generic stand-in.
func IsPlaceholderTitle(s string) bool {
	return placeholderTitles[strings.ToLower(strings.TrimSpace(s))]
}

// politeLeads are dropped before command prefixes are considered.
var politeLeads = []string{"please ", "can you ", "could you ", "would you ", "will you ", "hey ", "ok ", "okay "}

// commandPrefixes is ordered most-specific first; the first hit is stripped.
var commandPrefixes = []string{
	"create a new calendar event for ",
	"create a new calendar event called ",
	"create a calendar event for ",
	"create a calendar event called ",
	"create a new event for ",
	"create a new event called ",
	"create an event for ",
	"create an event called ",
	"create event for ",
	"create a new event ",
	"create an event ",
	"create a ",
	"create an ",
	"create ",
	"schedule a new ",
	"schedule an event for ",
	"schedule a ",
	"schedule an ",
	"schedule ",
	"set up a ",
	"set up an ",
	"set up ",
	"book a ",
	"book an ",
	"book ",
	"add an event for ",
	"add an event called ",
	"add a ",
	"add an ",
	"add ",
	"put a ",
	"put ",
	"remind me to ",
	"remind me about ",
	"remind me of ",
	"i need to ",
	"i want to ",
	"i have a ",
	"i have an ",
}

const (
	meridiem = `(?:am|pm|a\.m\.|p\.m\.)`
	clock    = `\d{1,2}(?::\d{2})?`
	weekday  = `(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|tues|wed|thu|thur|thurs|fri)`
	month    = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`
)

// trailingPhrases strip date and time qualifiers from the end of a title.
// They are applied repeatedly until none matches.
var trailingPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|\s+)for\s+(?:an?|half\s+an|\d+(?:\.\d+)?)\s*(?:hours?|hrs?|minutes?|mins?)$`),
	regexp.MustCompile(`(?i)(?:^|\s+)from\s+` + clock + `\s*` + meridiem + `?(?:\s*(?:-|to|until|till)\s*` + clock + `\s*` + meridiem + `?)?$`),
	regexp.MustCompile(`(?i)(?:^|\s+)(?:at\s+)?` + clock + `\s*` + meridiem + `$`),
	regexp.MustCompile(`(?i)(?:^|\s+)at\s+` + clock + `$`),
	regexp.MustCompile(`(?i)(?:^|\s+)at\s+(?:noon|midnight)$`),
	regexp.MustCompile(`(?i)(?:^|\s+)(?:in\s+the\s+|this\s+)?(?:morning|afternoon|evening)$`),
	regexp.MustCompile(`(?i)(?:^|\s+)(?:on\s+)?(?:next\s+|this\s+)?` + weekday + `$`),
	regexp.MustCompile(`(?i)(?:^|\s+)(?:on\s+)?` + month + `\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?$`),
	regexp.MustCompile(`(?i)(?:^|\s+)(?:on\s+)?(?:the\s+)?\d{1,2}(?:st|nd|rd|th)\s+of\s+` + month + `$`),
	regexp.MustCompile(`(?i)(?:^|\s+)(?:on\s+)?\d{1,2}/\d{1,2}(?:/\d{2,4})?$`),
	regexp.MustCompile(`(?i)(?:^|\s+)(?:on\s+)?\d{4}-\d{2}-\d{2}$`),
	regexp.MustCompile(`(?i)(?:^|\s+)(?:for\s+|on\s+)?(?:tomorrow|today|tonight)$`),
	regexp.MustCompile(`(?i)(?:^|\s+)(?:next|this)\s+(?:week|weekend|month)$`),
	regexp.MustCompile(`(?i)(?:^|\s+)in\s+\d+\s+(?:days?|weeks?)$`),
	regexp.MustCompile(`(?i)(?:^|\s+)(?:to|on|in)\s+(?:my|the)\s+calendar$`),
}

// TitleFromImperative derives an event title from a user command such as
// "schedule a dentist appointment tomorrow at 3pm". The leading command
// phrase and trailing date/time qualifiers are removed. Results shorter
// than two characters are reported as "".
func TitleFromImperative(text string) string {
	s := strings.TrimSpace(NormalizeApostrophes(text))

	for _, lead := range politeLeads {
		if rest, ok := cutPrefixFold(s, lead); ok {
			s = rest
			break
		}
	}
	for _, prefix := range commandPrefixes {
		if rest, ok := cutPrefixFold(s, prefix); ok {
			s = rest
			break
		}
	}

	s = strings.TrimRight(s, " .!?")
	for changed := true; changed; {
		changed = false
		for _, re := range trailingPhrases {
			if loc := re.FindStringIndex(s); loc != nil {
				s = s[:loc[0]]
				changed = true
			}
		}
	}

	s = strings.Trim(s, " \t.,!?;:'\"-")
	if len([]rune(s)) < 2 {
		return ""
	}
	return s
}

// cutPrefixFold is strings.CutPrefix with a case-insensitive match. The
// prefixes are ASCII, so a match always ends on a rune boundary in s.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
