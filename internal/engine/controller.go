// Package engine holds the per-conversation state machine that proposes
// inferred actions, waits for the user's decision and executes confirmed
// actions against external services.
package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/conversation"
	"github.com/soyeahso/concierge/internal/domain"
	"github.com/soyeahso/concierge/internal/hooks"
	"github.com/soyeahso/concierge/internal/logging"
)

// State is the controller's position in the action lifecycle.
type State int

const (
	Idle State = iota
	Proposed
	Executing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Proposed:
		return "proposed"
	case Executing:
		return "executing"
	default:
		return "unknown"
	}
}

// DeclineMessage is appended when the user rejects a proposed action.
const DeclineMessage = "Okay, I won't do that. Nothing was changed."

// ErrExecuting is returned by Propose while a confirmed action is running.
var ErrExecuting = errors.New("an action is already executing")

// Controller owns the single pending-action slot of one conversation.
// All methods are safe for concurrent use; slot and message-log mutations
// are serialized by mu.
type Controller struct {
	convID   string
	store    conversation.Store
	builder  *action.Builder
	services Services
	hooks    *hooks.Manager
	log      *logging.Logger

	mu      sync.Mutex
	state   State
	pending *action.Proposed
}

// Deps are the collaborators shared by all controllers.
type Deps struct {
	Store    conversation.Store
	Builder  *action.Builder
	Services Services
	Hooks    *hooks.Manager // optional
	Log      *logging.Logger
}

// NewController creates an idle controller for a conversation.
func NewController(convID string, d Deps) *Controller {
	return &Controller{
		convID:   convID,
		store:    d.Store,
		builder:  d.Builder,
		services: d.Services,
		hooks:    d.Hooks,
		log:      d.Log.Sub("engine").With("conversation", convID),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the action awaiting a decision, or the one executing.
func (c *Controller) Pending() *action.Proposed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// OnAssistantMessage infers an action from an assistant turn and proposes
// it. A structured tool call takes precedence over text heuristics.
// Returns nil when the turn is a plain reply.
func (c *Controller) OnAssistantMessage(ctx context.Context, msg domain.Message, userText string) *action.Proposed {
	var p *action.Proposed
	if msg.HasToolCall() {
		var err error
		if p, err = c.builder.FromToolCall(*msg.ToolCall); err != nil {
			c.log.Warn().Err(err).Str("tool", msg.ToolCall.Name).Msg("ignoring unusable tool call")
			return nil
		}
	} else {
		p = c.builder.Infer(msg.Text, userText)
	}
	if p == nil {
		return nil
	}
	if err := c.Propose(ctx, p); err != nil {
		c.log.Warn().Err(err).Str("action", p.Summary).Msg("proposal rejected")
		return nil
	}
	return p
}

// Propose makes p the pending action. An action already awaiting a
// decision is discarded, not queued.
func (c *Controller) Propose(ctx context.Context, p *action.Proposed) error {
	if err := p.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state == Executing {
		c.mu.Unlock()
		return ErrExecuting
	}
	replaced := c.pending
	c.pending, c.state = p, Proposed
	c.mu.Unlock()

	if replaced != nil {
		c.log.Debug().Str("action", replaced.Summary).Msg("pending action replaced")
		c.emit(ctx, hooks.EventActionDiscarded, replaced, nil)
	}
	c.log.Info().Str("kind", string(p.Kind)).Str("action", p.Summary).Msg("action proposed")
	c.emit(ctx, hooks.EventActionProposed, p, nil)
	return nil
}

// Confirm executes the pending action. The lock is released while the
// external call runs so readers are not blocked; the Executing state keeps
// a second Confirm from running the action again. Reports false when there
// was nothing to confirm.
func (c *Controller) Confirm(ctx context.Context) (action.Result, bool) {
	c.mu.Lock()
	if c.state != Proposed {
		c.mu.Unlock()
		return action.Result{}, false
	}
	p := c.pending
	c.state = Executing
	c.mu.Unlock()

	c.log.Info().Str("action", p.Summary).Msg("executing action")
	confirmation, err := c.services.execute(ctx, p)

	var res action.Result
	c.mu.Lock()
	if err != nil {
		res = action.Result{Success: false, Message: failureText(p, err)}
		c.store.Append(c.convID, domain.AssistantMessage(res.Message))
	} else {
		res = action.Result{Success: true, Message: confirmation}
		c.store.Append(c.convID, domain.AssistantMessage("Done: "+p.Summary))
		c.store.Append(c.convID, domain.AssistantMessage(confirmation))
	}
	c.pending, c.state = nil, Idle
	c.mu.Unlock()

	if err != nil {
		c.log.Error().Err(err).Str("action", p.Summary).Msg("action failed")
		c.emit(ctx, hooks.EventActionFailed, p, &res)
	} else {
		c.log.Info().Str("action", p.Summary).Msg("action executed")
		c.emit(ctx, hooks.EventActionExecuted, p, &res)
	}
	return res, true
}

// Decline drops the pending action without executing it and acknowledges
// the decision in the conversation. Reports false when there was nothing
// to decline.
func (c *Controller) Decline(ctx context.Context) bool {
	c.mu.Lock()
	if c.state != Proposed {
		c.mu.Unlock()
		return false
	}
	p := c.pending
	c.pending, c.state = nil, Idle
	c.store.Append(c.convID, domain.AssistantMessage(DeclineMessage))
	c.mu.Unlock()

	c.log.Info().Str("action", p.Summary).Msg("action declined")
	c.emit(ctx, hooks.EventActionDeclined, p, nil)
	return true
}

// Discard silently drops an unanswered proposal, as happens when the user
// moves on to a new request. Reports whether anything was dropped.
func (c *Controller) Discard(ctx context.Context) bool {
	c.mu.Lock()
	if c.state != Proposed {
		c.mu.Unlock()
		return false
	}
	p := c.pending
	c.pending, c.state = nil, Idle
	c.mu.Unlock()

	c.log.Debug().Str("action", p.Summary).Msg("pending action discarded")
	c.emit(ctx, hooks.EventActionDiscarded, p, nil)
	return true
}

func (c *Controller) emit(ctx context.Context, event string, p *action.Proposed, res *action.Result) {
	c.hooks.Emit(ctx, hooks.Payload{Event: event, ConversationID: c.convID, Action: p, Result: res})
}
