package action

import (
	"strings"

	"github.com/soyeahso/concierge/internal/extract"
)

// Markers the assistant is prompted to include when it intends an action.
const (
	EventMarker = "[CREATE_EVENT]"
	EmailMarker = "[SEND_EMAIL]"
)

var (
	eventPhrases = []string{"i'll create", "i will create"}
	emailPhrases = []string{"i'll send", "i will send"}
	markerStrip  = strings.NewReplacer(EventMarker, "", EmailMarker, "")
)

// Intent is a detected request to build one kind of action from a turn.
type Intent struct {
	Kind     Kind
	RawText  string
	UserText string
}

// Detect reports which action kinds an assistant reply announces, event
// creation first. A turn that already carries a structured tool call is
// never inspected.
func Detect(assistantText, userText string, hasToolCall bool) []Intent {
	if hasToolCall {
		return nil
	}
	lower := strings.ToLower(extract.NormalizeApostrophes(assistantText))

	var intents []Intent
	if strings.Contains(assistantText, EventMarker) || containsAny(lower, eventPhrases) {
		intents = append(intents, Intent{Kind: CreateEvent, RawText: assistantText, UserText: userText})
	}
	if strings.Contains(assistantText, EmailMarker) || containsAny(lower, emailPhrases) {
		intents = append(intents, Intent{Kind: SendEmail, RawText: assistantText, UserText: userText})
	}
	return intents
}

// StripMarkers removes action markers from text shown to the user.
func StripMarkers(text string) string {
	return strings.TrimSpace(markerStrip.Replace(text))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
