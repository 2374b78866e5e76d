package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/extract"
)

// EchoClient is an offline provider. With Replies set it returns them in
// order, repeating the last; otherwise it answers scheduling and email
// requests with marker-tagged replies so the heuristics can be tried
// without a model.
type EchoClient struct {
	Replies []string

	mu    sync.Mutex
	calls int
}

// Name returns the provider name.
func (e *EchoClient) Name() string { return "echo" }

// Complete replies to the last user message.
func (e *EchoClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var last string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			last = req.Messages[i].Content
			break
		}
	}
	return &CompletionResponse{Content: e.reply(last), Model: "echo"}, nil
}

var scheduleWords = []string{"schedule", "book", "meeting", "remind", "appointment", "calendar", "event"}

func (e *EchoClient) reply(user string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Replies) > 0 {
		i := min(e.calls, len(e.Replies)-1)
		e.calls++
		return e.Replies[i]
	}

	if addr := extract.EmailAddress(user); addr != "" {
		return action.EmailMarker + " I'll send an email to " + addr + "."
	}
	lower := strings.ToLower(user)
	for _, w := range scheduleWords {
		if strings.Contains(lower, w) {
			return action.EventMarker + " I'll create that for you."
		}
	}
	return "You said: " + user
}
