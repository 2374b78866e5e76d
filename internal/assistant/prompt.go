package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/concierge/internal/action"
)

// PromptConfig controls system prompt generation.
type PromptConfig struct {
	Now             time.Time
	StructuredTools bool
	ExtraPrompt     string
}

// BuildSystemPrompt constructs the system prompt. The current time and zone
// let the model resolve relative dates the same way the action builder does.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current date and time: %s (%s)\n\n",
		cfg.Now.Format("Monday, January 2, 2006 3:04 PM"), cfg.Now.Location())

	b.WriteString("You help the user manage their calendar and email. You never perform actions yourself; ")
	b.WriteString("the user is shown a confirmation card and decides.\n\n")

	b.WriteString("Guidelines:\n")
	fmt.Fprintf(&b, "- To propose a calendar event, start your reply with %s and say \"I'll create '<title>' <day> at <time>\". ", action.EventMarker)
	b.WriteString("Mention a duration such as \"for 30 minutes\" when it is not one hour.\n")
	fmt.Fprintf(&b, "- To propose an email, start your reply with %s and say \"I'll send an email to <address> ", action.EmailMarker)
	b.WriteString("with subject: \"<subject>\" and body: \"<body>\"\".\n")
	b.WriteString("- Propose at most one action per reply.\n")
	b.WriteString("- Never say an action is done; it only happens after the user confirms.\n")

	if cfg.StructuredTools {
		b.WriteString("\nTools are available for these actions. Prefer calling a tool over the reply markers; ")
		b.WriteString("give times in RFC 3339 with the user's offset.\n")
	}

	if cfg.ExtraPrompt != "" {
		b.WriteString("\n")
		b.WriteString(cfg.ExtraPrompt)
		b.WriteString("\n")
	}
	return b.String()
}
