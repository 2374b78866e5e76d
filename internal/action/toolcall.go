package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/concierge/internal/domain"
	"github.com/soyeahso/concierge/internal/extract"
)

// Tool names accepted from the assistant model.
const (
	ToolCreateEvent = "create_calendar_event"
	ToolUpdateEvent = "update_calendar_event"
	ToolDeleteEvent = "delete_calendar_event"
	ToolSendEmail   = "send_email"
	ToolDraftEmail  = "draft_email"
)

var toolKinds = map[string]Kind{
	ToolCreateEvent: CreateEvent,
	"create_event":  CreateEvent,
	ToolUpdateEvent: UpdateEvent,
	"update_event":  UpdateEvent,
	ToolDeleteEvent: DeleteEvent,
	"delete_event":  DeleteEvent,
	ToolSendEmail:   SendEmail,
	ToolDraftEmail:  DraftEmail,
}

var (
	ErrUnknownTool  = errors.New("unknown tool")
	ErrMissingParam = errors.New("missing parameter")
	ErrInvalidParam = errors.New("invalid parameter")
)

// timeLayouts are accepted for start/end parameters. Layouts without an
// offset are read in the builder's location.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// FromToolCall builds an action from a structured tool call, bypassing text
// heuristics. Parameter values are strings; times use RFC 3339 or a local
// "2006-01-02 15:04" form.
func (b *Builder) FromToolCall(tc domain.ToolCall) (*Proposed, error) {
	kind, ok := toolKinds[tc.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, tc.Name)
	}
	param := func(name string) string { return strings.TrimSpace(tc.Parameters[name]) }
	now := b.now()

	var p *Proposed
	switch {
	case kind.IsEvent():
		ev, err := b.eventFromParams(kind, param, now)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tc.Name, err)
		}
		p = &Proposed{Kind: kind, Event: ev, Summary: eventSummary(kind, ev)}
	default:
		to := extract.EmailAddress(param("to"))
		if to == "" {
			return nil, fmt.Errorf("%s: %w: to", tc.Name, ErrMissingParam)
		}
		subject := param("subject")
		if subject == "" {
			subject = DefaultSubject
		}
		em := &EmailData{To: to, Subject: subject, Body: tc.Parameters["body"]}
		summary := "Send email to " + to
		if kind == DraftEmail {
			summary = "Draft email to " + to
		}
		p = &Proposed{Kind: kind, Email: em, Summary: summary}
	}
	return b.finish(p, now), nil
}

func (b *Builder) eventFromParams(kind Kind, param func(string) string, now time.Time) (*EventData, error) {
	ev := &EventData{
		EventID:     param("event_id"),
		Title:       param("title"),
		Location:    param("location"),
		Description: param("description"),
	}
	if kind != CreateEvent && ev.EventID == "" {
		return nil, fmt.Errorf("%w: event_id", ErrMissingParam)
	}
	if kind == DeleteEvent {
		return ev, nil
	}

	start, err := b.parseTime(param("start"))
	if err != nil {
		return nil, fmt.Errorf("%w: start: %v", ErrInvalidParam, err)
	}
	end, err := b.parseTime(param("end"))
	if err != nil {
		return nil, fmt.Errorf("%w: end: %v", ErrInvalidParam, err)
	}
	if kind == CreateEvent {
		if ev.Title == "" {
			ev.Title = DefaultTitle
		}
		if start.IsZero() {
			start = now
		}
	}
	if !start.IsZero() && !end.After(start) {
		dur := DefaultDuration
		if v := param("duration_minutes"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("%w: duration_minutes %q", ErrInvalidParam, v)
			}
			dur = time.Duration(n) * time.Minute
		}
		end = start.Add(dur)
	}
	ev.Start, ev.End = start, end
	return ev, nil
}

// parseTime returns the zero time for an empty value.
func (b *Builder) parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, b.location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", v)
}

func eventSummary(kind Kind, ev *EventData) string {
	name := "event " + ev.EventID
	if ev.Title != "" {
		name = "'" + ev.Title + "'"
	}
	switch kind {
	case UpdateEvent:
		return "Update " + name
	case DeleteEvent:
		return "Delete " + name
	default:
		return "Create " + name
	}
}
