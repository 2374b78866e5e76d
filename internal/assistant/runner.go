// Package assistant runs a conversation turn: it answers pending proposals,
// calls the model with the conversation history, and hands the reply to
// the action engine.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/conversation"
	"github.com/soyeahso/concierge/internal/domain"
	"github.com/soyeahso/concierge/internal/engine"
	"github.com/soyeahso/concierge/internal/llm"
	"github.com/soyeahso/concierge/internal/logging"
)

// ErrEmptyMessage is returned for blank user input.
var ErrEmptyMessage = errors.New("empty message")

// Config configures the runner.
type Config struct {
	MaxTokens       int
	Temperature     *float64
	StructuredTools bool
	HistoryLimit    int
	Location        *time.Location
	ExtraPrompt     string
}

// Turn is the outcome of one user message.
type Turn struct {
	Reply    string           `json:"reply"`
	Proposed *action.Proposed `json:"proposed,omitempty"`
	Result   *action.Result   `json:"result,omitempty"`
	Declined bool             `json:"declined,omitempty"`
	Usage    llm.Usage        `json:"usage"`
	Duration time.Duration    `json:"duration"`
}

// Runner is the conversation orchestration loop.
type Runner struct {
	cfg     Config
	client  llm.Client
	store   conversation.Store
	engines *engine.Registry
	log     *logging.Logger

	// Now supplies the prompt's current time. Defaults to time.Now.
	Now func() time.Time
}

// NewRunner creates a runner.
func NewRunner(cfg Config, client llm.Client, store conversation.Store, engines *engine.Registry, log *logging.Logger) *Runner {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Runner{
		cfg:     cfg,
		client:  client,
		store:   store,
		engines: engines,
		log:     log.Sub("assistant"),
		Now:     time.Now,
	}
}

// Send processes one user message. While a proposal is pending, a yes/no
// reply decides it without calling the model; any other message discards
// the proposal and starts a new turn.
func (r *Runner) Send(ctx context.Context, convID, text string) (*Turn, error) {
	start := time.Now()
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	ctrl := r.engines.For(convID)
	r.store.Append(convID, domain.UserMessage(text))

	// Confirm, Decline and Discard report false with nothing pending, so a
	// proposal resolved elsewhere leaves the message to the model.
	switch ParseDecision(text) {
	case Confirm:
		if res, ok := ctrl.Confirm(ctx); ok {
			return &Turn{Reply: res.Message, Result: &res, Duration: time.Since(start)}, nil
		}
	case Decline:
		if ctrl.Decline(ctx) {
			return &Turn{Reply: engine.DeclineMessage, Declined: true, Duration: time.Since(start)}, nil
		}
	default:
		ctrl.Discard(ctx)
	}
	return r.complete(ctx, convID, text, ctrl, start)
}

func (r *Runner) complete(ctx context.Context, convID, userText string, ctrl *engine.Controller, start time.Time) (*Turn, error) {
	history := conversation.Last(r.store, convID, r.cfg.HistoryLimit)
	req := llm.CompletionRequest{
		System: BuildSystemPrompt(PromptConfig{
			Now:             r.Now().In(r.cfg.Location),
			StructuredTools: r.cfg.StructuredTools,
			ExtraPrompt:     r.cfg.ExtraPrompt,
		}),
		Messages:    toLLMMessages(history),
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	}
	if r.cfg.StructuredTools {
		req.Tools = llm.ActionTools()
	}

	r.log.Debug().Str("conversation", convID).Int("history", len(req.Messages)).Msg("calling model")
	resp, err := r.client.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("model completion: %w", err)
	}

	msg := domain.AssistantMessage(resp.Content)
	if len(resp.ToolCalls) > 0 {
		if len(resp.ToolCalls) > 1 {
			r.log.Warn().Int("toolCalls", len(resp.ToolCalls)).Msg("only the first tool call is proposed")
		}
		tc, err := resp.ToolCalls[0].Domain()
		if err != nil {
			r.log.Warn().Err(err).Msg("ignoring malformed tool call")
		} else {
			msg.ToolCall = tc
		}
	}
	r.store.Append(convID, msg)

	turn := &Turn{
		Reply:    action.StripMarkers(resp.Content),
		Proposed: ctrl.OnAssistantMessage(ctx, msg, userText),
		Usage:    resp.Usage,
		Duration: time.Since(start),
	}
	if turn.Reply == "" && turn.Proposed != nil {
		turn.Reply = turn.Proposed.Summary + "?"
	}

	r.log.Info().
		Str("conversation", convID).
		Str("model", resp.Model).
		Bool("proposed", turn.Proposed != nil).
		Int("inputTokens", resp.Usage.InputTokens).
		Int("outputTokens", resp.Usage.OutputTokens).
		Dur("duration", turn.Duration).
		Msg("turn complete")
	return turn, nil
}

// Confirm executes the pending action of a conversation.
func (r *Runner) Confirm(ctx context.Context, convID string) (action.Result, bool) {
	return r.engines.For(convID).Confirm(ctx)
}

// Decline rejects the pending action of a conversation.
func (r *Runner) Decline(ctx context.Context, convID string) bool {
	return r.engines.For(convID).Decline(ctx)
}

// Pending returns the conversation's pending action, if any.
func (r *Runner) Pending(convID string) *action.Proposed {
	if c, ok := r.engines.Lookup(convID); ok {
		return c.Pending()
	}
	return nil
}

// History returns the conversation's messages in order.
func (r *Runner) History(convID string) []domain.Message {
	return r.store.Messages(convID)
}

// toLLMMessages renders stored messages for the model. Tool-call turns
// with no text are described so the model sees what it proposed.
func toLLMMessages(msgs []domain.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		content := m.Text
		if strings.TrimSpace(content) == "" && m.HasToolCall() {
			content = fmt.Sprintf("(proposed %s)", m.ToolCall.Name)
		}
		out = append(out, llm.Message{Role: string(m.Role), Content: content})
	}
	return out
}
