// Package hooks dispatches action and gateway lifecycle events to
// in-process subscribers such as the action log and the gateway.
package hooks

import (
	"context"
	"sync"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/logging"
)

// Event names for the hook system.
const (
	EventActionProposed  = "action_proposed"
	EventActionDiscarded = "action_discarded"
	EventActionDeclined  = "action_declined"
	EventActionExecuted  = "action_executed"
	EventActionFailed    = "action_failed"
	EventGatewayStart    = "gateway_start"
	EventGatewayStop     = "gateway_stop"
)

// ActionEvents lists the events that carry an action.
var ActionEvents = []string{
	EventActionProposed,
	EventActionDiscarded,
	EventActionDeclined,
	EventActionExecuted,
	EventActionFailed,
}

// AllEvents lists all known hook event names.
var AllEvents = append([]string{EventGatewayStart, EventGatewayStop}, ActionEvents...)

// Payload carries event data to hook handlers. Only the fields relevant to
// the event are set.
type Payload struct {
	Event          string           `json:"event"`
	ConversationID string           `json:"conversationId,omitempty"`
	Action         *action.Proposed `json:"action,omitempty"`
	Result         *action.Result   `json:"result,omitempty"`
	Data           map[string]any   `json:"data,omitempty"`
}

// Handler is a function that handles a hook event.
// Returning an error logs the failure but does not stop processing.
type Handler func(ctx context.Context, p Payload) error

// Manager manages hook registrations and dispatches events.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for the given event.
// The name identifies the handler for logging and for Off.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], namedHandler{name: name, handler: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// OnEach registers one handler for several events.
func (m *Manager) OnEach(events []string, name string, handler Handler) {
	for _, e := range events {
		m.On(e, name, handler)
	}
}

// Off removes all handlers with the given name from the event.
func (m *Manager) Off(event, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handlers := m.handlers[event]
	filtered := make([]namedHandler, 0, len(handlers))
	for _, h := range handlers {
		if h.name != name {
			filtered = append(filtered, h)
		}
	}
	m.handlers[event] = filtered
}

func (m *Manager) snapshot(event string) []namedHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	handlers := make([]namedHandler, len(m.handlers[event]))
	copy(handlers, m.handlers[event])
	return handlers
}

// Emit dispatches p to all handlers of p.Event synchronously, in
// registration order. Errors are logged and do not stop later handlers.
// A nil Manager ignores events.
func (m *Manager) Emit(ctx context.Context, p Payload) {
	if m == nil {
		return
	}
	for _, h := range m.snapshot(p.Event) {
		if err := h.handler(ctx, p); err != nil {
			m.log.Warn().
				Err(err).
				Str("event", p.Event).
				Str("handler", h.name).
				Msg("hook handler error")
		}
	}
}

// EmitAsync dispatches p to all handlers concurrently and returns
// immediately; handler errors are logged.
func (m *Manager) EmitAsync(ctx context.Context, p Payload) {
	if m == nil {
		return
	}
	for _, h := range m.snapshot(p.Event) {
		go func(h namedHandler) {
			if err := h.handler(ctx, p); err != nil {
				m.log.Warn().
					Err(err).
					Str("event", p.Event).
					Str("handler", h.name).
					Msg("async hook handler error")
			}
		}(h)
	}
}

// Count returns the number of handlers registered for an event.
func (m *Manager) Count(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[event])
}

// Events returns the events that have at least one handler registered.
func (m *Manager) Events() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]string, 0, len(m.handlers))
	for event, handlers := range m.handlers {
		if len(handlers) > 0 {
			events = append(events, event)
		}
	}
	return events
}
