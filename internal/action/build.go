package action

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/concierge/internal/extract"
)

const (
	// DefaultDuration is used when no duration phrase is found.
	DefaultDuration = time.Hour
	DefaultTitle    = "New Event"
	DefaultSubject  = "No Subject"
)

// actionNamespace seeds deterministic action IDs.
var actionNamespace = uuid.MustParse("6f1c8c4e-3d8a-4b57-9a51-2b0e5f2f7c11")

// Builder turns detected intents into proposed actions. Now and Location
// are injected so date resolution is reproducible.
type Builder struct {
	Now      func() time.Time
	Location *time.Location
}

// NewBuilder returns a Builder using the wall clock in loc. A nil loc
// means time.Local.
func NewBuilder(loc *time.Location) *Builder {
	if loc == nil {
		loc = time.Local
	}
	return &Builder{Now: time.Now, Location: loc}
}

func (b *Builder) now() time.Time {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	t := now()
	if b.Location != nil {
		t = t.In(b.Location)
	}
	return t
}

func (b *Builder) location() *time.Location {
	if b.Location != nil {
		return b.Location
	}
	return time.Local
}

// Infer detects and builds the action announced by an assistant reply.
// Event creation is tried before email; the first kind that yields an
// action wins. Returns nil for a plain reply.
func (b *Builder) Infer(assistantText, userText string) *Proposed {
	for _, in := range Detect(assistantText, userText, false) {
		if p := b.Build(in); p != nil {
			return p
		}
	}
	return nil
}

// Build constructs the action for a single intent, or nil when required
// fields are missing.
func (b *Builder) Build(in Intent) *Proposed {
	switch in.Kind {
	case CreateEvent:
		return b.BuildEvent(in.RawText, in.UserText)
	case SendEmail:
		return b.BuildEmail(in.RawText)
	default:
		return nil
	}
}

// BuildEvent always returns an event: when nothing usable is found it
// falls back to a one-hour "New Event" starting now.
func (b *Builder) BuildEvent(rawText, userText string) *Proposed {
	now := b.now()
	raw := extract.NormalizeApostrophes(StripMarkers(rawText))
	search := raw + " " + extract.NormalizeApostrophes(userText)

	title := extract.QuotedOrTitledName(raw)
	if title == "" || extract.IsPlaceholderTitle(title) {
		title = extract.TitleFromImperative(userText)
	}
	if title == "" {
		title = DefaultTitle
	}
	title = extract.TitleCase(title)

	start := extract.ResolveDate(search, now)
	if h, m, ok := extract.ResolveTime(search); ok {
		start = extract.At(start, h, m)
	}
	dur, ok := extract.ResolveDuration(search)
	if !ok {
		dur = DefaultDuration
	}

	ev := &EventData{Title: title, Start: start, End: start.Add(dur)}
	return b.finish(&Proposed{
		Kind:    CreateEvent,
		Event:   ev,
		Summary: fmt.Sprintf("Create '%s'", title),
	}, now)
}

// BuildEmail returns nil when rawText names no recipient address.
func (b *Builder) BuildEmail(rawText string) *Proposed {
	raw := StripMarkers(rawText)
	to := extract.EmailAddress(raw)
	if to == "" {
		return nil
	}
	subject := extract.QuotedField(raw, "subject")
	if subject == "" {
		subject = DefaultSubject
	}
	return b.finish(&Proposed{
		Kind:    SendEmail,
		Email:   &EmailData{To: to, Subject: subject, Body: extract.QuotedField(raw, "body")},
		Summary: "Send email to " + to,
	}, b.now())
}

// finish stamps the creation time and a content-derived ID, so identical
// inputs at the same instant produce identical actions.
func (b *Builder) finish(p *Proposed, now time.Time) *Proposed {
	p.CreatedAt = now
	key := fmt.Sprintf("%s|%s|%s", p.Kind, p.Summary, now.Format(time.RFC3339Nano))
	if ev := p.Event; ev != nil {
		key += fmt.Sprintf("|%s|%s|%s|%s", ev.EventID, ev.Start.Format(time.RFC3339), ev.End.Format(time.RFC3339), ev.Location)
	}
	if em := p.Email; em != nil {
		key += "|" + em.Subject + "|" + em.Body
	}
	p.ID = uuid.NewSHA1(actionNamespace, []byte(key)).String()
	return p
}
