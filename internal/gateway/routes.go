package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/soyeahso/concierge/internal/assistant"
	"github.com/soyeahso/concierge/internal/domain"
	"github.com/soyeahso/concierge/internal/engine"
	"github.com/soyeahso/concierge/internal/hooks"
)

// assistantCallTimeout bounds a chat.send turn, model call included.
const assistantCallTimeout = 5 * time.Minute

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// registerRPCHandlers sets up all RPC method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("chat.send", s.rpcChatSend)
	s.Handle("action.pending", s.rpcActionPending)
	s.Handle("action.confirm", s.rpcActionConfirm)
	s.Handle("action.decline", s.rpcActionDecline)
	s.Handle("conversation.history", s.rpcConversationHistory)
}

func (s *Server) rpcHealth(rc *RequestContext) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
		Clients: s.clients.Count(),
	}
	if !s.startedAt.IsZero() {
		resp.UptimeMs = time.Since(s.startedAt).Milliseconds()
	}
	rc.Respond(resp)
}

// requireAssistant reports an error response when no assistant is wired.
func (s *Server) requireAssistant(rc *RequestContext) bool {
	if s.assistant == nil {
		rc.RespondError(CodeUnavailable, "no assistant configured")
		return false
	}
	return true
}

func (s *Server) rpcChatSend(rc *RequestContext) {
	if !s.requireAssistant(rc) {
		return
	}
	var p ChatSendParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError(CodeInvalidParams, err.Error())
		return
	}
	convID := rc.Conversation(p.ConversationID)

	ctx, cancel := context.WithTimeout(rc.Ctx, assistantCallTimeout)
	defer cancel()

	turn, err := s.assistant.Send(ctx, convID, p.Message)
	if errors.Is(err, assistant.ErrEmptyMessage) {
		rc.RespondError(CodeInvalidParams, "message is required")
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Str("conversation", convID).Msg("chat turn failed")
		rc.RespondError(CodeAssistantError, err.Error())
		return
	}

	rc.Respond(ChatSendResult{
		ConversationID: convID,
		Reply:          turn.Reply,
		Proposed:       turn.Proposed,
		Effect:         effectOf(turn.Proposed),
		Result:         turn.Result,
		Declined:       turn.Declined,
		DurationMs:     turn.Duration.Milliseconds(),
	})
}

func (s *Server) rpcActionPending(rc *RequestContext) {
	if !s.requireAssistant(rc) {
		return
	}
	var p ConversationParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError(CodeInvalidParams, err.Error())
		return
	}
	convID := rc.Conversation(p.ConversationID)
	pending := s.assistant.Pending(convID)
	rc.Respond(PendingResult{ConversationID: convID, Action: pending, Effect: effectOf(pending)})
}

func (s *Server) rpcActionConfirm(rc *RequestContext) {
	if !s.requireAssistant(rc) {
		return
	}
	var p ConversationParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError(CodeInvalidParams, err.Error())
		return
	}
	convID := rc.Conversation(p.ConversationID)

	res, ok := s.assistant.Confirm(rc.Ctx, convID)
	if !ok {
		rc.RespondError(CodeNothingPending, "no action is pending")
		return
	}
	rc.Respond(ActionEvent{ConversationID: convID, Result: &res})
}

func (s *Server) rpcActionDecline(rc *RequestContext) {
	if !s.requireAssistant(rc) {
		return
	}
	var p ConversationParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError(CodeInvalidParams, err.Error())
		return
	}
	convID := rc.Conversation(p.ConversationID)

	if !s.assistant.Decline(rc.Ctx, convID) {
		rc.RespondError(CodeNothingPending, "no action is pending")
		return
	}
	rc.Respond(map[string]any{
		"conversationId": convID,
		"declined":       true,
		"message":        engine.DeclineMessage,
	})
}

func (s *Server) rpcConversationHistory(rc *RequestContext) {
	if !s.requireAssistant(rc) {
		return
	}
	var p ConversationParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError(CodeInvalidParams, err.Error())
		return
	}
	convID := rc.Conversation(p.ConversationID)
	msgs := s.assistant.History(convID)
	if msgs == nil {
		msgs = []domain.Message{}
	}
	rc.Respond(HistoryResult{ConversationID: convID, Messages: msgs})
}

// hookEvents maps action lifecycle hooks to the events pushed to clients.
// Discards are silent and not forwarded.
var hookEvents = map[string]string{
	hooks.EventActionProposed: EventActionProposed,
	hooks.EventActionExecuted: EventActionResult,
	hooks.EventActionFailed:   EventActionResult,
	hooks.EventActionDeclined: EventActionDeclined,
}

const hookName = "gateway"

// subscribe forwards action lifecycle hooks to every connected client.
func (s *Server) subscribe() {
	for hook := range hookEvents {
		s.hooks.On(hook, hookName, s.onActionHook)
	}
}

func (s *Server) unsubscribe() {
	for hook := range hookEvents {
		s.hooks.Off(hook, hookName)
	}
}

func (s *Server) onActionHook(ctx context.Context, p hooks.Payload) error {
	event, ok := hookEvents[p.Event]
	if !ok {
		return nil
	}
	s.clients.Broadcast(event, ActionEvent{
		ConversationID: p.ConversationID,
		Action:         p.Action,
		Effect:         effectOf(p.Action),
		Result:         p.Result,
	}, s.eventSeq.Add(1))
	return nil
}
