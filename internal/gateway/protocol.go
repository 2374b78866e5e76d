package gateway

import (
	"encoding/json"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/domain"
)

// Frame types for the WebSocket protocol.
const (
	FrameTypeRequest  = "req"
	FrameTypeResponse = "res"
	FrameTypeEvent    = "event"
)

// Event names pushed to clients.
const (
	EventHello          = "hello"
	EventActionProposed = "action.proposed"
	EventActionResult   = "action.result"
	EventActionDeclined = "action.declined"
)

// Error codes used in response frames.
const (
	CodeMethodNotFound = "method_not_found"
	CodeInvalidParams  = "invalid_params"
	CodeNothingPending = "nothing_pending"
	CodeAssistantError = "assistant_error"
	CodeUnavailable    = "unavailable"
)

// Frame is the base envelope for all WebSocket messages.
// The Type field discriminates between request, response, and event frames.
type Frame struct {
	Type string `json:"type"`

	// Request fields
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	// Response fields
	OK      *bool           `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// Event fields
	Event string `json:"event,omitempty"`
	Seq   int64  `json:"seq,omitempty"`

	// Error (response only)
	Error *ErrorShape `json:"error,omitempty"`
}

// ErrorShape is the standard error format in response frames.
type ErrorShape struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Hello is the first event sent on a new connection.
type Hello struct {
	Protocol int      `json:"protocol"`
	Version  string   `json:"version"`
	ConnID   string   `json:"connId"`
	Methods  []string `json:"methods"`
	Events   []string `json:"events"`
}

// ConversationParams address a conversation. An empty ConversationID
// means the connection's own conversation.
type ConversationParams struct {
	ConversationID string `json:"conversationId,omitempty"`
}

// ChatSendParams are the params of chat.send.
type ChatSendParams struct {
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message"`
}

// ChatSendResult is the payload of a chat.send response.
type ChatSendResult struct {
	ConversationID string           `json:"conversationId"`
	Reply          string           `json:"reply"`
	Proposed       *action.Proposed `json:"proposed,omitempty"`
	Effect         *action.Effect   `json:"effect,omitempty"`
	Result         *action.Result   `json:"result,omitempty"`
	Declined       bool             `json:"declined,omitempty"`
	DurationMs     int64            `json:"durationMs"`
}

// PendingResult is the payload of action.pending.
type PendingResult struct {
	ConversationID string           `json:"conversationId"`
	Action         *action.Proposed `json:"action,omitempty"`
	Effect         *action.Effect   `json:"effect,omitempty"`
}

// HistoryResult is the payload of conversation.history.
type HistoryResult struct {
	ConversationID string           `json:"conversationId"`
	Messages       []domain.Message `json:"messages"`
}

// ActionEvent is the payload of action.* events.
type ActionEvent struct {
	ConversationID string           `json:"conversationId"`
	Action         *action.Proposed `json:"action,omitempty"`
	Effect         *action.Effect   `json:"effect,omitempty"`
	Result         *action.Result   `json:"result,omitempty"`
}

// effectOf returns presentation metadata for p, or nil.
func effectOf(p *action.Proposed) *action.Effect {
	if p == nil {
		return nil
	}
	e := p.Kind.Effect()
	return &e
}

// NewRequest creates a request frame.
func NewRequest(id, method string, params any) (Frame, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:   FrameTypeRequest,
		ID:     id,
		Method: method,
		Params: raw,
	}, nil
}

// NewResponse creates a success response frame.
func NewResponse(id string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	ok := true
	return Frame{
		Type:    FrameTypeResponse,
		ID:      id,
		OK:      &ok,
		Payload: raw,
	}, nil
}

// NewErrorResponse creates an error response frame.
func NewErrorResponse(id string, errShape ErrorShape) Frame {
	ok := false
	return Frame{
		Type:  FrameTypeResponse,
		ID:    id,
		OK:    &ok,
		Error: &errShape,
	}
}

// NewEvent creates an event frame.
func NewEvent(event string, payload any, seq int64) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:    FrameTypeEvent,
		Event:   event,
		Payload: raw,
		Seq:     seq,
	}, nil
}

// Protocol version supported by this server.
const ProtocolVersion = 1
