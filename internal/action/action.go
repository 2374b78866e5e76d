// Package action models user-confirmable side effects inferred from a
// conversation, and builds them from assistant replies or structured tool
// calls.
package action

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies what a proposed action would do.
type Kind string

const (
	CreateEvent Kind = "create_event"
	UpdateEvent Kind = "update_event"
	DeleteEvent Kind = "delete_event"
	SendEmail   Kind = "send_email"
	DraftEmail  Kind = "draft_email"
)

// Effect is the fixed presentation metadata for a Kind.
type Effect struct {
	ConfirmLabel string `json:"confirmLabel"`
	Destructive  bool   `json:"destructive"`
}

var effects = map[Kind]Effect{
	CreateEvent: {ConfirmLabel: "Add to Calendar"},
	UpdateEvent: {ConfirmLabel: "Update Event"},
	DeleteEvent: {ConfirmLabel: "Delete Event", Destructive: true},
	SendEmail:   {ConfirmLabel: "Send Email", Destructive: true},
	DraftEmail:  {ConfirmLabel: "Save Draft"},
}

// Effect returns the presentation metadata for k.
func (k Kind) Effect() Effect { return effects[k] }

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := effects[k]
	return ok
}

// IsEvent reports whether k carries EventData.
func (k Kind) IsEvent() bool {
	return k == CreateEvent || k == UpdateEvent || k == DeleteEvent
}

// IsEmail reports whether k carries EmailData.
func (k Kind) IsEmail() bool { return k == SendEmail || k == DraftEmail }

// EventData describes a calendar event to create, change or remove.
// EventID is only set for updates and deletes.
type EventData struct {
	EventID     string    `json:"eventId,omitempty"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Duration is End minus Start.
func (e EventData) Duration() time.Duration { return e.End.Sub(e.Start) }

// EmailData describes a message to send or save as a draft.
type EmailData struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Proposed is an inferred action awaiting the user's decision. Exactly one
// of Event and Email is set, matching Kind.
type Proposed struct {
	ID        string     `json:"id"`
	Kind      Kind       `json:"kind"`
	Event     *EventData `json:"event,omitempty"`
	Email     *EmailData `json:"email,omitempty"`
	Summary   string     `json:"summary"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Validate checks the one-payload invariant and required fields.
func (p *Proposed) Validate() error {
	switch {
	case !p.Kind.Valid():
		return fmt.Errorf("unknown action kind %q", p.Kind)
	case p.Kind.IsEvent() && (p.Event == nil || p.Email != nil):
		return fmt.Errorf("%s requires event data only", p.Kind)
	case p.Kind.IsEmail() && (p.Email == nil || p.Event != nil):
		return fmt.Errorf("%s requires email data only", p.Kind)
	case p.Email != nil && !strings.Contains(p.Email.To, "@"):
		return fmt.Errorf("invalid recipient %q", p.Email.To)
	case p.Kind == CreateEvent && !p.Event.End.After(p.Event.Start):
		return fmt.Errorf("event must end after it starts")
	case (p.Kind == UpdateEvent || p.Kind == DeleteEvent) && p.Event.EventID == "":
		return fmt.Errorf("%s requires an event id", p.Kind)
	}
	return nil
}

// Result is the outcome of executing a confirmed action.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Preview renders the action as short labelled lines for a confirmation
// card.
func (p *Proposed) Preview() []string {
	var lines []string
	if ev := p.Event; ev != nil {
		if ev.Title != "" {
			lines = append(lines, "Title: "+ev.Title)
		}
		if !ev.Start.IsZero() {
			lines = append(lines, "When:  "+ev.Start.Format("Mon Jan 2, 3:04 PM"))
			if !ev.End.IsZero() {
				lines = append(lines, "Until: "+ev.End.Format("Mon Jan 2, 3:04 PM")+" ("+formatDuration(ev.Duration())+")")
			}
		}
		if ev.Location != "" {
			lines = append(lines, "Where: "+ev.Location)
		}
		if ev.EventID != "" {
			lines = append(lines, "Event: "+ev.EventID)
		}
	}
	if em := p.Email; em != nil {
		lines = append(lines, "To:      "+em.To, "Subject: "+em.Subject)
		if em.Body != "" {
			lines = append(lines, "Body:    "+em.Body)
		}
	}
	return lines
}

func formatDuration(d time.Duration) string {
	h, m := int(d.Hours()), int(d.Minutes())%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02dm", h, m)
	}
}
