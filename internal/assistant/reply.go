package assistant

import "strings"

// Decision is how a user message answers a pending proposal.
type Decision int

const (
	NoDecision Decision = iota
	Confirm
	Decline
)

func (d Decision) String() string {
	switch d {
	case Confirm:
		return "confirm"
	case Decline:
		return "decline"
	default:
		return "none"
	}
}

var (
	confirmWords = []string{
		"yes", "y", "ok", "okay", "confirm", "proceed",
		"go ahead", "go", "create it", "send it", "do it", "continue",
		"sure", "yep", "yup", "yeah", "affirmative",
	}
	declineWords = []string{
		"no", "n", "cancel", "abort", "stop", "nope",
		"nevermind", "never mind", "forget it", "nah", "don't",
	}
	politeSuffixes = []string{" please", " thanks", " thank you"}
)

// ParseDecision classifies a reply to a pending proposal. Only the first
// clause counts and it must be a decision word on its own, optionally
// followed by "please" or "thanks", so "go to the gym tomorrow" is a new
// request rather than a confirmation.
func ParseDecision(text string) Decision {
	s := strings.ToLower(strings.TrimSpace(text))
	if i := strings.IndexAny(s, ",;"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, ".!? ")
	for _, suf := range politeSuffixes {
		s = strings.TrimSuffix(s, suf)
	}
	s = strings.TrimSpace(s)

	for _, w := range declineWords {
		if s == w {
			return Decline
		}
	}
	for _, w := range confirmWords {
		if s == w {
			return Confirm
		}
	}
	return NoDecision
}
