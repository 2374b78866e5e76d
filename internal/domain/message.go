package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single immutable turn in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"content"`
	ToolCall  *ToolCall `json:"toolCall,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolCall is a structured action request emitted by the assistant model.
// Parameters are flat strings; typed values are parsed by the action builder.
type ToolCall struct {
	Name       string            `json:"name"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// NewMessage creates a message with a fresh ID and the current time.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// UserMessage is shorthand for NewMessage(RoleUser, text).
func UserMessage(text string) Message { return NewMessage(RoleUser, text) }

// AssistantMessage is shorthand for NewMessage(RoleAssistant, text).
func AssistantMessage(text string) Message { return NewMessage(RoleAssistant, text) }

// HasToolCall reports whether the message carries a structured action request.
func (m Message) HasToolCall() bool { return m.ToolCall != nil && m.ToolCall.Name != "" }
