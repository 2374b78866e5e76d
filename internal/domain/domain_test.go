package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	m := UserMessage("hello")
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, RoleUser, m.Role)
	assert.Equal(t, "hello", m.Text)
	assert.False(t, m.Timestamp.IsZero())

	other := AssistantMessage("hi")
	assert.NotEqual(t, m.ID, other.ID)
	assert.Equal(t, RoleAssistant, other.Role)
}

func TestHasToolCall(t *testing.T) {
	m := AssistantMessage("ok")
	assert.False(t, m.HasToolCall())

	m.ToolCall = &ToolCall{}
	assert.False(t, m.HasToolCall())

	m.ToolCall = &ToolCall{Name: "send_email"}
	assert.True(t, m.HasToolCall())
}

func TestMessageJSON(t *testing.T) {
	m := AssistantMessage("I'll create it")
	m.ToolCall = &ToolCall{Name: "create_calendar_event", Parameters: map[string]string{"title": "Standup"}}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "I'll create it", raw["content"])
	assert.Equal(t, "assistant", raw["role"])
	tc, ok := raw["toolCall"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "create_calendar_event", tc["name"])

	plain, err := json.Marshal(UserMessage("x"))
	require.NoError(t, err)
	assert.NotContains(t, string(plain), "toolCall")
}
