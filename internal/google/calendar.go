package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/logging"
)

// ErrEventNotFound is returned when an update or delete targets a missing
// event.
var ErrEventNotFound = errors.New("event not found")

// Calendar executes event actions on one Google calendar.
type Calendar struct {
	svc        *calendar.Service
	calendarID string
	log        *logging.Logger
}

// NewCalendar creates a Calendar. opts typically carry
// option.WithHTTPClient from HTTPClient.
func NewCalendar(ctx context.Context, calendarID string, log *logging.Logger, opts ...option.ClientOption) (*Calendar, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Calendar{svc: svc, calendarID: calendarID, log: log.Sub("calendar")}, nil
}

// CreateEvent inserts ev and returns the new event's ID.
func (c *Calendar) CreateEvent(ctx context.Context, ev action.EventData) (string, error) {
	body := &calendar.Event{
		Summary:     ev.Title,
		Location:    ev.Location,
		Description: ev.Description,
		Start:       eventTime(ev.Start),
		End:         eventTime(ev.End),
	}
	created, err := c.svc.Events.Insert(c.calendarID, body).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("events.insert: %w", err)
	}
	c.log.Info().Str("id", created.Id).Str("title", ev.Title).Msg("event created")
	return created.Id, nil
}

// UpdateEvent patches the fields of ev that are set; zero fields are left
// unchanged on the server.
func (c *Calendar) UpdateEvent(ctx context.Context, ev action.EventData) error {
	patch := &calendar.Event{
		Summary:     ev.Title,
		Location:    ev.Location,
		Description: ev.Description,
	}
	if !ev.Start.IsZero() {
		patch.Start = eventTime(ev.Start)
	}
	if !ev.End.IsZero() {
		patch.End = eventTime(ev.End)
	}
	if _, err := c.svc.Events.Patch(c.calendarID, ev.EventID, patch).Context(ctx).Do(); err != nil {
		return wrapNotFound("events.patch", ev.EventID, err)
	}
	c.log.Info().Str("id", ev.EventID).Msg("event updated")
	return nil
}

// DeleteEvent removes the event with the given ID.
func (c *Calendar) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
		return wrapNotFound("events.delete", eventID, err)
	}
	c.log.Info().Str("id", eventID).Msg("event deleted")
	return nil
}

func eventTime(t time.Time) *calendar.EventDateTime {
	dt := &calendar.EventDateTime{DateTime: t.Format(time.RFC3339)}
	if name := t.Location().String(); name != "Local" {
		dt.TimeZone = name
	}
	return dt
}

func wrapNotFound(op, id string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return fmt.Errorf("%s %s: %w", op, id, ErrEventNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
