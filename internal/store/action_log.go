package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/hooks"
)

// ActionEntry is one recorded step in an action's lifecycle.
type ActionEntry struct {
	ConversationID string           `json:"conversationId"`
	ActionID       string           `json:"actionId"`
	Kind           action.Kind      `json:"kind"`
	Status         string           `json:"status"`
	Summary        string           `json:"summary"`
	Detail         string           `json:"detail,omitempty"`
	Action         *action.Proposed `json:"action,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// ActionLog is an append-only audit trail of proposed, declined, executed
// and failed actions.
type ActionLog struct {
	db *DB
}

// NewActionLog creates an action log using the given database.
func NewActionLog(db *DB) *ActionLog {
	return &ActionLog{db: db}
}

// Record stores an entry. The full action is kept as JSON.
func (l *ActionLog) Record(e ActionEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var payload sql.NullString
	if e.Action != nil {
		data, err := json.Marshal(e.Action)
		if err != nil {
			return fmt.Errorf("encoding action: %w", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}
	_, err := l.db.sql.Exec(
		`INSERT INTO action_log (conversation_id, action_id, kind, status, summary, detail, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ConversationID, e.ActionID, string(e.Kind), e.Status, e.Summary, e.Detail, payload, formatTime(e.CreatedAt),
	)
	return err
}

// Recent returns up to n entries for a conversation, newest first. An empty
// convID spans all conversations.
func (l *ActionLog) Recent(convID string, n int) ([]ActionEntry, error) {
	if n <= 0 {
		n = 20
	}
	query := `SELECT conversation_id, action_id, kind, status, summary, detail, payload, created_at
		FROM action_log`
	args := []any{}
	if convID != "" {
		query += ` WHERE conversation_id = ?`
		args = append(args, convID)
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, n)

	rows, err := l.db.sql.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActionEntry
	for rows.Next() {
		var e ActionEntry
		var kind, created string
		var payload sql.NullString
		if err := rows.Scan(&e.ConversationID, &e.ActionID, &kind, &e.Status, &e.Summary, &e.Detail, &payload, &created); err != nil {
			return nil, err
		}
		e.Kind = action.Kind(kind)
		e.CreatedAt = parseTime(created)
		if payload.Valid {
			var p action.Proposed
			if err := json.Unmarshal([]byte(payload.String), &p); err == nil {
				e.Action = &p
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Subscribe records every action lifecycle event emitted on m.
func (l *ActionLog) Subscribe(m *hooks.Manager) {
	m.OnEach(hooks.ActionEvents, "action-log", func(ctx context.Context, p hooks.Payload) error {
		if p.Action == nil {
			return nil
		}
		e := ActionEntry{
			ConversationID: p.ConversationID,
			ActionID:       p.Action.ID,
			Kind:           p.Action.Kind,
			Status:         strings.TrimPrefix(p.Event, "action_"),
			Summary:        p.Action.Summary,
			Action:         p.Action,
		}
		if p.Result != nil {
			e.Detail = p.Result.Message
		}
		return l.Record(e)
	})
}
