package llm

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/domain"
)

const eventSchema = `{
  "type": "object",
  "properties": {
    "title": {"type": "string", "description": "Event title"},
    "start": {"type": "string", "description": "Start time, RFC 3339 or YYYY-MM-DD HH:MM in the user's timezone"},
    "end": {"type": "string", "description": "End time; defaults to one hour after start"},
    "duration_minutes": {"type": "integer", "description": "Used when end is omitted"},
    "location": {"type": "string"},
    "description": {"type": "string"}%s
  },
  "required": [%s]
}`

const emailSchema = `{
  "type": "object",
  "properties": {
    "to": {"type": "string", "description": "Recipient email address"},
    "subject": {"type": "string"},
    "body": {"type": "string"}
  },
  "required": ["to"]
}`

const eventIDProp = `,
    "event_id": {"type": "string", "description": "ID of an existing event"}`

// ActionTools returns the tools the assistant may call to propose actions.
// Calls are never executed directly; they become proposals the user must
// confirm.
func ActionTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        action.ToolCreateEvent,
			Description: "Propose a new calendar event. The user confirms before it is created.",
			InputSchema: fmt.Sprintf(eventSchema, "", `"title", "start"`),
		},
		{
			Name:        action.ToolUpdateEvent,
			Description: "Propose changes to an existing calendar event.",
			InputSchema: fmt.Sprintf(eventSchema, eventIDProp, `"event_id"`),
		},
		{
			Name:        action.ToolDeleteEvent,
			Description: "Propose deleting a calendar event.",
			InputSchema: `{"type": "object", "properties": {"event_id": {"type": "string"}, "title": {"type": "string"}}, "required": ["event_id"]}`,
		},
		{
			Name:        action.ToolSendEmail,
			Description: "Propose sending an email. The user confirms before it is sent.",
			InputSchema: emailSchema,
		},
		{
			Name:        action.ToolDraftEmail,
			Description: "Propose saving an email as a draft without sending it.",
			InputSchema: emailSchema,
		},
	}
}

// Params flattens the call's JSON arguments to strings. Nulls are dropped;
// nested values are kept as JSON text.
func (tc ToolCall) Params() (map[string]string, error) {
	params := make(map[string]string)
	if len(tc.Input) == 0 {
		return params, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(tc.Input, &raw); err != nil {
		return nil, fmt.Errorf("tool %s: arguments are not a JSON object: %w", tc.Name, err)
	}
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
		case string:
			params[k] = v
		case float64:
			params[k] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			params[k] = strconv.FormatBool(v)
		default:
			b, _ := json.Marshal(v)
			params[k] = string(b)
		}
	}
	return params, nil
}

// Domain converts the call to the conversation model's representation.
func (tc ToolCall) Domain() (*domain.ToolCall, error) {
	params, err := tc.Params()
	if err != nil {
		return nil, err
	}
	return &domain.ToolCall{Name: tc.Name, Parameters: params}, nil
}
