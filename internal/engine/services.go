package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/soyeahso/concierge/internal/action"
)

// ErrNoService is returned when a confirmed action has no configured backend.
var ErrNoService = errors.New("no service configured")

// CalendarService executes calendar actions. CreateEvent returns the new
// event's ID.
type CalendarService interface {
	CreateEvent(ctx context.Context, ev action.EventData) (string, error)
	UpdateEvent(ctx context.Context, ev action.EventData) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// EmailSender delivers a message.
type EmailSender interface {
	SendEmail(ctx context.Context, em action.EmailData) error
}

// DraftSaver stores a message as a draft without sending it.
type DraftSaver interface {
	SaveDraft(ctx context.Context, em action.EmailData) error
}

// Services are the external collaborators actions are executed against.
// Any of them may be nil; actions needing a missing one fail with
// ErrNoService.
type Services struct {
	Calendar CalendarService
	Email    EmailSender
	Drafts   DraftSaver
}

// execute runs p against the matching service and returns a confirmation
// sentence for the user.
func (s Services) execute(ctx context.Context, p *action.Proposed) (string, error) {
	switch p.Kind {
	case action.CreateEvent:
		if s.Calendar == nil {
			return "", fmt.Errorf("%w: calendar", ErrNoService)
		}
		if _, err := s.Calendar.CreateEvent(ctx, *p.Event); err != nil {
			return "", err
		}
		return fmt.Sprintf("Added '%s' to your calendar for %s.", p.Event.Title, p.Event.Start.Format("Mon Jan 2 at 3:04 PM")), nil

	case action.UpdateEvent:
		if s.Calendar == nil {
			return "", fmt.Errorf("%w: calendar", ErrNoService)
		}
		if err := s.Calendar.UpdateEvent(ctx, *p.Event); err != nil {
			return "", err
		}
		return "Updated " + eventName(p.Event) + ".", nil

	case action.DeleteEvent:
		if s.Calendar == nil {
			return "", fmt.Errorf("%w: calendar", ErrNoService)
		}
		if err := s.Calendar.DeleteEvent(ctx, p.Event.EventID); err != nil {
			return "", err
		}
		return "Deleted " + eventName(p.Event) + " from your calendar.", nil

	case action.SendEmail:
		if s.Email == nil {
			return "", fmt.Errorf("%w: email", ErrNoService)
		}
		if err := s.Email.SendEmail(ctx, *p.Email); err != nil {
			return "", err
		}
		return fmt.Sprintf("Sent '%s' to %s.", p.Email.Subject, p.Email.To), nil

	case action.DraftEmail:
		if s.Drafts == nil {
			return "", fmt.Errorf("%w: drafts", ErrNoService)
		}
		if err := s.Drafts.SaveDraft(ctx, *p.Email); err != nil {
			return "", err
		}
		return fmt.Sprintf("Saved a draft of '%s' to %s.", p.Email.Subject, p.Email.To), nil
	}
	return "", fmt.Errorf("unsupported action kind %q", p.Kind)
}

func eventName(ev *action.EventData) string {
	if ev.Title != "" {
		return "'" + ev.Title + "'"
	}
	return "event " + ev.EventID
}

// failureText turns "Create 'X'" into "Failed to create 'X': <err>".
func failureText(p *action.Proposed, err error) string {
	summary := p.Summary
	if summary != "" {
		summary = strings.ToLower(summary[:1]) + summary[1:]
	}
	return fmt.Sprintf("Failed to %s: %v", summary, err)
}
