package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/conversation"
	"github.com/soyeahso/concierge/internal/domain"
	"github.com/soyeahso/concierge/internal/hooks"
	"github.com/soyeahso/concierge/internal/logging"
)

var fixedNow = time.Date(2024, 3, 13, 10, 30, 0, 0, time.UTC)

type fakeCalendar struct {
	mu      sync.Mutex
	created []action.EventData
	updated []action.EventData
	deleted []string
	err     error

	started chan struct{}
	release chan struct{}
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, ev action.EventData) (string, error) {
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, ev)
	return "evt-1", nil
}

func (f *fakeCalendar) UpdateEvent(ctx context.Context, ev action.EventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, ev)
	return f.err
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.err
}

type fakeMailer struct {
	sent   []action.EmailData
	drafts []action.EmailData
}

func (f *fakeMailer) SendEmail(ctx context.Context, em action.EmailData) error {
	f.sent = append(f.sent, em)
	return nil
}

func (f *fakeMailer) SaveDraft(ctx context.Context, em action.EmailData) error {
	f.drafts = append(f.drafts, em)
	return nil
}

type harness struct {
	ctrl   *Controller
	store  *conversation.MemoryStore
	cal    *fakeCalendar
	mail   *fakeMailer
	events []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logging.New(nil, "silent")
	h := &harness{store: conversation.NewMemoryStore(), cal: &fakeCalendar{}, mail: &fakeMailer{}}

	m := hooks.NewManager(log)
	var mu sync.Mutex
	m.OnEach(hooks.ActionEvents, "recorder", func(ctx context.Context, p hooks.Payload) error {
		mu.Lock()
		defer mu.Unlock()
		h.events = append(h.events, p.Event)
		return nil
	})

	b := action.NewBuilder(time.UTC)
	b.Now = func() time.Time { return fixedNow }
	h.ctrl = NewController("c1", Deps{
		Store:    h.store,
		Builder:  b,
		Services: Services{Calendar: h.cal, Email: h.mail, Drafts: h.mail},
		Hooks:    m,
		Log:      log,
	})
	return h
}

func (h *harness) texts() []string {
	var out []string
	for _, m := range h.store.Messages("c1") {
		out = append(out, m.Text)
	}
	return out
}

func eventReply() domain.Message {
	return domain.AssistantMessage("[CREATE_EVENT] I'll create 'Team Sync' tomorrow at 3pm.")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "proposed", Proposed.String())
	assert.Equal(t, "executing", Executing.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestOnAssistantMessagePlainReply(t *testing.T) {
	h := newHarness(t)
	p := h.ctrl.OnAssistantMessage(context.Background(), domain.AssistantMessage("Sure, what time works?"), "lunch?")
	assert.Nil(t, p)
	assert.Equal(t, Idle, h.ctrl.State())
	assert.Nil(t, h.ctrl.Pending())
	assert.Empty(t, h.events)
}

func TestProposeAndConfirmEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p := h.ctrl.OnAssistantMessage(ctx, eventReply(), "schedule team sync tomorrow at 3pm")
	require.NotNil(t, p)
	assert.Equal(t, Proposed, h.ctrl.State())
	assert.Same(t, p, h.ctrl.Pending())
	assert.Empty(t, h.cal.created, "nothing runs before confirmation")

	res, ok := h.ctrl.Confirm(ctx)
	require.True(t, ok)
	assert.True(t, res.Success)
	assert.Equal(t, "Added 'Team Sync' to your calendar for Thu Mar 14 at 3:00 PM.", res.Message)

	require.Len(t, h.cal.created, 1)
	assert.Equal(t, "Team Sync", h.cal.created[0].Title)
	assert.Equal(t, time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC), h.cal.created[0].Start)

	assert.Equal(t, Idle, h.ctrl.State())
	assert.Nil(t, h.ctrl.Pending())
	assert.Equal(t, []string{"Done: Create 'Team Sync'", res.Message}, h.texts())
	assert.Equal(t, []string{hooks.EventActionProposed, hooks.EventActionExecuted}, h.events)
}

func TestConfirmTwiceExecutesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NotNil(t, h.ctrl.OnAssistantMessage(ctx, eventReply(), ""))

	_, ok := h.ctrl.Confirm(ctx)
	require.True(t, ok)
	_, ok = h.ctrl.Confirm(ctx)
	assert.False(t, ok)
	assert.Len(t, h.cal.created, 1)
}

func TestConfirmAndDeclineWithNothingPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, ok := h.ctrl.Confirm(ctx)
	assert.False(t, ok)
	assert.False(t, h.ctrl.Decline(ctx))
	assert.False(t, h.ctrl.Discard(ctx))
	assert.Empty(t, h.texts())
	assert.Empty(t, h.events)
}

func TestDecline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NotNil(t, h.ctrl.OnAssistantMessage(ctx, eventReply(), ""))

	assert.True(t, h.ctrl.Decline(ctx))
	assert.Equal(t, Idle, h.ctrl.State())
	assert.Nil(t, h.ctrl.Pending())
	assert.Empty(t, h.cal.created)
	assert.Equal(t, []string{DeclineMessage}, h.texts())
	assert.Equal(t, []string{hooks.EventActionProposed, hooks.EventActionDeclined}, h.events)

	_, ok := h.ctrl.Confirm(ctx)
	assert.False(t, ok)
}

func TestProposeReplacesPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.ctrl.OnAssistantMessage(ctx, eventReply(), "")
	require.NotNil(t, first)
	second := h.ctrl.OnAssistantMessage(ctx,
		domain.AssistantMessage("[SEND_EMAIL] I'll send it to bob@example.com with subject: \"Notes\""), "")
	require.NotNil(t, second)

	assert.Same(t, second, h.ctrl.Pending())
	_, ok := h.ctrl.Confirm(ctx)
	require.True(t, ok)

	assert.Empty(t, h.cal.created, "replaced action must never run")
	require.Len(t, h.mail.sent, 1)
	assert.Equal(t, "bob@example.com", h.mail.sent[0].To)
	assert.Equal(t, "Notes", h.mail.sent[0].Subject)
	assert.Equal(t, []string{
		hooks.EventActionProposed,
		hooks.EventActionDiscarded,
		hooks.EventActionProposed,
		hooks.EventActionExecuted,
	}, h.events)
}

func TestDiscardIsSilent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NotNil(t, h.ctrl.OnAssistantMessage(ctx, eventReply(), ""))

	assert.True(t, h.ctrl.Discard(ctx))
	assert.Equal(t, Idle, h.ctrl.State())
	assert.Empty(t, h.texts())
}

func TestConfirmFailure(t *testing.T) {
	h := newHarness(t)
	h.cal.err = errors.New("calendar unavailable")
	ctx := context.Background()
	require.NotNil(t, h.ctrl.OnAssistantMessage(ctx, eventReply(), ""))

	res, ok := h.ctrl.Confirm(ctx)
	require.True(t, ok)
	assert.False(t, res.Success)
	assert.Equal(t, "Failed to create 'Team Sync': calendar unavailable", res.Message)
	assert.Equal(t, []string{res.Message}, h.texts())
	assert.Equal(t, Idle, h.ctrl.State())
	assert.Equal(t, []string{hooks.EventActionProposed, hooks.EventActionFailed}, h.events)
}

func TestConfirmWithoutService(t *testing.T) {
	log := logging.New(nil, "silent")
	store := conversation.NewMemoryStore()
	b := action.NewBuilder(time.UTC)
	b.Now = func() time.Time { return fixedNow }
	c := NewController("c1", Deps{Store: store, Builder: b, Log: log})
	ctx := context.Background()

	require.NotNil(t, c.OnAssistantMessage(ctx, eventReply(), ""))
	res, ok := c.Confirm(ctx)
	require.True(t, ok)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, ErrNoService.Error())
	assert.Equal(t, Idle, c.State())
}

func TestToolCallBypassesHeuristics(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg := domain.AssistantMessage("[CREATE_EVENT] I'll create 'Ignored' tomorrow.")
	msg.ToolCall = &domain.ToolCall{Name: action.ToolDeleteEvent, Parameters: map[string]string{"event_id": "evt-9"}}

	p := h.ctrl.OnAssistantMessage(ctx, msg, "")
	require.NotNil(t, p)
	assert.Equal(t, action.DeleteEvent, p.Kind)

	res, ok := h.ctrl.Confirm(ctx)
	require.True(t, ok)
	assert.True(t, res.Success)
	assert.Equal(t, "Deleted event evt-9 from your calendar.", res.Message)
	assert.Equal(t, []string{"evt-9"}, h.cal.deleted)
}

func TestUnusableToolCallIsIgnored(t *testing.T) {
	h := newHarness(t)
	msg := domain.AssistantMessage("[CREATE_EVENT] I'll create it.")
	msg.ToolCall = &domain.ToolCall{Name: "launch_rocket"}

	assert.Nil(t, h.ctrl.OnAssistantMessage(context.Background(), msg, ""))
	assert.Equal(t, Idle, h.ctrl.State())
}

func TestDraftAndUpdateExecution(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg := domain.AssistantMessage("")
	msg.ToolCall = &domain.ToolCall{Name: action.ToolDraftEmail, Parameters: map[string]string{
		"to": "ann@example.com", "subject": "Agenda", "body": "see attached",
	}}
	require.NotNil(t, h.ctrl.OnAssistantMessage(ctx, msg, ""))
	res, ok := h.ctrl.Confirm(ctx)
	require.True(t, ok)
	assert.Equal(t, "Saved a draft of 'Agenda' to ann@example.com.", res.Message)
	require.Len(t, h.mail.drafts, 1)
	assert.Empty(t, h.mail.sent)

	msg.ToolCall = &domain.ToolCall{Name: action.ToolUpdateEvent, Parameters: map[string]string{
		"event_id": "evt-2", "title": "Standup", "start": "2024-03-15T09:00:00Z",
	}}
	require.NotNil(t, h.ctrl.OnAssistantMessage(ctx, msg, ""))
	res, ok = h.ctrl.Confirm(ctx)
	require.True(t, ok)
	assert.Equal(t, "Updated 'Standup'.", res.Message)
	require.Len(t, h.cal.updated, 1)
	assert.Equal(t, time.Hour, h.cal.updated[0].Duration())
}

func TestProposeRejectsInvalidAction(t *testing.T) {
	h := newHarness(t)
	err := h.ctrl.Propose(context.Background(), &action.Proposed{Kind: action.SendEmail})
	assert.Error(t, err)
	assert.Equal(t, Idle, h.ctrl.State())
}

func TestExecutingBlocksOtherTransitions(t *testing.T) {
	h := newHarness(t)
	h.cal.started = make(chan struct{})
	h.cal.release = make(chan struct{})
	ctx := context.Background()
	require.NotNil(t, h.ctrl.OnAssistantMessage(ctx, eventReply(), ""))

	done := make(chan action.Result)
	go func() {
		res, _ := h.ctrl.Confirm(ctx)
		done <- res
	}()
	<-h.cal.started

	assert.Equal(t, Executing, h.ctrl.State())
	assert.NotNil(t, h.ctrl.Pending())
	_, ok := h.ctrl.Confirm(ctx)
	assert.False(t, ok)
	assert.False(t, h.ctrl.Decline(ctx))
	assert.False(t, h.ctrl.Discard(ctx))
	assert.Nil(t, h.ctrl.OnAssistantMessage(ctx, eventReply(), ""))
	assert.ErrorIs(t, h.ctrl.Propose(ctx, h.ctrl.Pending()), ErrExecuting)

	close(h.cal.release)
	res := <-done
	assert.True(t, res.Success)
	assert.Equal(t, Idle, h.ctrl.State())
	assert.Len(t, h.cal.created, 1)
}

func TestRegistry(t *testing.T) {
	log := logging.New(nil, "silent")
	r := NewRegistry(Deps{Store: conversation.NewMemoryStore(), Builder: action.NewBuilder(time.UTC), Log: log})

	_, ok := r.Lookup("a")
	assert.False(t, ok)

	a := r.For("a")
	assert.Same(t, a, r.For("a"))
	assert.NotSame(t, a, r.For("b"))

	got, ok := r.Lookup("a")
	assert.True(t, ok)
	assert.Same(t, a, got)
}
