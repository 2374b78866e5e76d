package store

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
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

var _ conversation.Store = (*SQLiteConversationStore)(nil)

func silentLog() *logging.Logger { return logging.New(nil, "silent") }

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", silentLog())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- DB/Migration tests ---

func TestMigrationsApplied(t *testing.T) {
	db := testDB(t)

	v, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].Version, v)

	require.NoError(t, db.migrate())
	var count int
	require.NoError(t, db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(migrations), count)
}

func TestSchemaTablesExist(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"conversations", "messages", "messages_fts", "action_log"} {
		var name string
		err := db.sql.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "concierge.db")
	db, err := Open(path, silentLog())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path, silentLog())
	require.NoError(t, err)
	defer db.Close()
	v, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

// --- Conversation store tests ---

func TestConversationAppendAndRead(t *testing.T) {
	s := NewSQLiteConversationStore(testDB(t))

	user := domain.UserMessage("schedule lunch tomorrow")
	reply := domain.AssistantMessage("I'll create it")
	reply.ToolCall = &domain.ToolCall{Name: "create_calendar_event", Parameters: map[string]string{"title": "Lunch"}}

	s.Append("c1", user)
	s.Append("c1", reply)
	s.Append("c2", domain.UserMessage("unrelated"))

	msgs := s.Messages("c1")
	require.Len(t, msgs, 2)
	assert.Equal(t, user.ID, msgs[0].ID)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Nil(t, msgs[0].ToolCall)
	assert.Equal(t, "I'll create it", msgs[1].Text)
	require.NotNil(t, msgs[1].ToolCall)
	assert.Equal(t, "Lunch", msgs[1].ToolCall.Parameters["title"])
	assert.WithinDuration(t, user.Timestamp, msgs[0].Timestamp, time.Second)

	assert.Empty(t, s.Messages("missing"))
}

func TestConversationOrderIsInsertionOrder(t *testing.T) {
	s := NewSQLiteConversationStore(testDB(t))
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		// Identical timestamps must not reorder messages.
		s.Append("c", domain.Message{ID: fmt.Sprint(i), Role: domain.RoleUser, Text: fmt.Sprint(i), Timestamp: ts})
	}
	msgs := s.Messages("c")
	require.Len(t, msgs, 5)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprint(i), m.Text)
	}
}

func TestConversationDuplicateIDIsRejected(t *testing.T) {
	s := NewSQLiteConversationStore(testDB(t))
	m := domain.UserMessage("once")
	s.Append("c", m)
	s.Append("c", m)
	assert.Len(t, s.Messages("c"), 1)
}

func TestConversationList(t *testing.T) {
	s := NewSQLiteConversationStore(testDB(t))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Append("old", domain.Message{ID: "1", Role: domain.RoleUser, Text: "a", Timestamp: base})
	s.Append("new", domain.Message{ID: "2", Role: domain.RoleUser, Text: "b", Timestamp: base.Add(time.Hour)})
	s.Append("old", domain.Message{ID: "3", Role: domain.RoleAssistant, Text: "c", Timestamp: base.Add(time.Minute)})

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
	assert.Equal(t, 2, list[1].Messages)
	assert.Equal(t, base, list[1].CreatedAt)
	assert.Equal(t, base.Add(time.Minute), list[1].UpdatedAt)
}

func TestConversationReadFailuresAreLogged(t *testing.T) {
	var buf bytes.Buffer
	db, err := Open(":memory:", logging.New(&buf, "debug"))
	require.NoError(t, err)
	s := NewSQLiteConversationStore(db)

	s.Append("c", domain.Message{ID: "m1", Role: domain.RoleAssistant, Text: "sure"})
	_, err = db.sql.Exec(`UPDATE messages SET tool_call = '{broken' WHERE id = 'm1'`)
	require.NoError(t, err)

	msgs := s.Messages("c")
	require.Len(t, msgs, 1)
	assert.Equal(t, "sure", msgs[0].Text)
	assert.Nil(t, msgs[0].ToolCall)
	assert.Contains(t, buf.String(), "ignoring malformed tool call")

	require.NoError(t, db.Close())
	assert.Nil(t, s.List())
	assert.Contains(t, buf.String(), "failed to list conversations")
	assert.Nil(t, s.Messages("c"))
	assert.Contains(t, buf.String(), "failed to load messages")
}

func TestConversationSearch(t *testing.T) {
	s := NewSQLiteConversationStore(testDB(t))
	s.Append("c1", domain.UserMessage("book the dentist for friday"))
	s.Append("c2", domain.UserMessage("email the quarterly report"))
	s.Append("c2", domain.AssistantMessage("I'll send the report to finance"))

	hits, err := s.Search("report", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "c2", h.ConversationID)
	}

	hits, err = s.Search("dentist", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ConversationID)

	_, err = s.Search(`"unbalanced`, 5)
	assert.Error(t, err)
}

// --- Action log tests ---

func sampleAction() *action.Proposed {
	start := time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC)
	return &action.Proposed{
		ID:      "a1",
		Kind:    action.CreateEvent,
		Event:   &action.EventData{Title: "Team Sync", Start: start, End: start.Add(time.Hour)},
		Summary: "Create 'Team Sync'",
	}
}

func TestActionLogRecordAndRecent(t *testing.T) {
	log := NewActionLog(testDB(t))
	p := sampleAction()

	require.NoError(t, log.Record(ActionEntry{ConversationID: "c1", ActionID: p.ID, Kind: p.Kind, Status: "proposed", Summary: p.Summary, Action: p}))
	require.NoError(t, log.Record(ActionEntry{ConversationID: "c1", ActionID: p.ID, Kind: p.Kind, Status: "executed", Summary: p.Summary, Detail: "ok"}))
	require.NoError(t, log.Record(ActionEntry{ConversationID: "c2", ActionID: "a2", Kind: action.SendEmail, Status: "declined", Summary: "Send email to x@y.z"}))

	entries, err := log.Recent("c1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "executed", entries[0].Status)
	assert.Equal(t, "ok", entries[0].Detail)
	assert.Equal(t, "proposed", entries[1].Status)
	require.NotNil(t, entries[1].Action)
	assert.Equal(t, "Team Sync", entries[1].Action.Event.Title)

	all, err := log.Recent("", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestActionLogSubscribe(t *testing.T) {
	log := NewActionLog(testDB(t))
	m := hooks.NewManager(silentLog())
	log.Subscribe(m)

	ctx := context.Background()
	p := sampleAction()
	m.Emit(ctx, hooks.Payload{Event: hooks.EventActionProposed, ConversationID: "c1", Action: p})
	m.Emit(ctx, hooks.Payload{Event: hooks.EventActionFailed, ConversationID: "c1", Action: p,
		Result: &action.Result{Message: "calendar unavailable"}})
	m.Emit(ctx, hooks.Payload{Event: hooks.EventActionDeclined, ConversationID: "c1"})

	entries, err := log.Recent("c1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "failed", entries[0].Status)
	assert.Equal(t, "calendar unavailable", entries[0].Detail)
	assert.Equal(t, "proposed", entries[1].Status)
	assert.Equal(t, action.CreateEvent, entries[1].Kind)
}
