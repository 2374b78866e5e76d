package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/concierge/internal/domain"
)

// SQLiteConversationStore implements conversation.Store backed by SQLite.
type SQLiteConversationStore struct {
	db *DB
}

// NewSQLiteConversationStore creates a conversation store using the given database.
func NewSQLiteConversationStore(db *DB) *SQLiteConversationStore {
	return &SQLiteConversationStore{db: db}
}

// Append adds a message to a conversation, creating the conversation on
// first use. Failures are logged; the log is best-effort from the caller's
// point of view.
func (s *SQLiteConversationStore) Append(convID string, msg domain.Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var toolCall sql.NullString
	if msg.ToolCall != nil {
		if data, err := json.Marshal(msg.ToolCall); err == nil {
			toolCall = sql.NullString{String: string(data), Valid: true}
		}
	}

	tx, err := s.db.sql.Begin()
	if err != nil {
		s.db.log.Error().Err(err).Str("conversation", convID).Msg("failed to begin append")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		convID, formatTime(ts), formatTime(ts),
	); err != nil {
		s.db.log.Error().Err(err).Str("conversation", convID).Msg("failed to upsert conversation")
		return
	}
	if _, err := tx.Exec(
		`INSERT INTO messages (id, conversation_id, role, content, tool_call, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, convID, string(msg.Role), msg.Text, toolCall, formatTime(ts),
	); err != nil {
		s.db.log.Error().Err(err).Str("conversation", convID).Msg("failed to append message")
		return
	}
	if err := tx.Commit(); err != nil {
		s.db.log.Error().Err(err).Str("conversation", convID).Msg("failed to commit message")
	}
}

// Messages returns the conversation's messages in insertion order.
func (s *SQLiteConversationStore) Messages(convID string) []domain.Message {
	rows, err := s.db.sql.Query(
		`SELECT id, role, content, tool_call, timestamp
		 FROM messages WHERE conversation_id = ? ORDER BY seq`, convID,
	)
	if err != nil {
		s.db.log.Error().Err(err).Str("conversation", convID).Msg("failed to load messages")
		return nil
	}
	defer rows.Close()
	return s.scanMessages(convID, rows)
}

// List returns all conversations, most recently updated first.
func (s *SQLiteConversationStore) List() []domain.Conversation {
	rows, err := s.db.sql.Query(
		`SELECT c.id, c.created_at, c.updated_at, COUNT(m.seq)
		 FROM conversations c LEFT JOIN messages m ON m.conversation_id = c.id
		 GROUP BY c.id
		 ORDER BY c.updated_at DESC, c.id`,
	)
	if err != nil {
		s.db.log.Error().Err(err).Msg("failed to list conversations")
		return nil
	}
	defer rows.Close()

	var out []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		var created, updated string
		if err := rows.Scan(&c.ID, &created, &updated, &c.Messages); err != nil {
			s.db.log.Error().Err(err).Msg("skipping unreadable conversation row")
			continue
		}
		c.CreatedAt, c.UpdatedAt = parseTime(created), parseTime(updated)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.db.log.Error().Err(err).Msg("failed to list conversations")
	}
	return out
}

// SearchHit is a message matched by a full-text query.
type SearchHit struct {
	ConversationID string         `json:"conversationId"`
	Message        domain.Message `json:"message"`
}

// Search finds messages matching an FTS5 query, best match first.
// Limit of 0 defaults to 20.
func (s *SQLiteConversationStore) Search(query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.sql.Query(
		`SELECT m.conversation_id, m.id, m.role, m.content, m.tool_call, m.timestamp
		 FROM messages_fts
		 JOIN messages m ON m.seq = messages_fts.rowid
		 WHERE messages_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		msg, err := s.scanMessage(rows, &h.ConversationID)
		if err != nil {
			return nil, err
		}
		h.Message = msg
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *SQLiteConversationStore) scanMessages(convID string, rows *sql.Rows) []domain.Message {
	var msgs []domain.Message
	for rows.Next() {
		msg, err := s.scanMessage(rows)
		if err != nil {
			s.db.log.Error().Err(err).Str("conversation", convID).Msg("skipping unreadable message row")
			continue
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		s.db.log.Error().Err(err).Str("conversation", convID).Msg("failed to load messages")
	}
	return msgs
}

// scanMessage reads id, role, content, tool_call and timestamp, after any
// leading destinations in prefix. A corrupt tool_call is logged and left
// off the message.
func (s *SQLiteConversationStore) scanMessage(rows *sql.Rows, prefix ...any) (domain.Message, error) {
	var msg domain.Message
	var role, ts string
	var toolCall sql.NullString

	dest := append(prefix, &msg.ID, &role, &msg.Text, &toolCall, &ts)
	if err := rows.Scan(dest...); err != nil {
		return msg, err
	}
	msg.Role = domain.Role(role)
	msg.Timestamp = parseTime(ts)
	if toolCall.Valid && toolCall.String != "" {
		var tc domain.ToolCall
		if err := json.Unmarshal([]byte(toolCall.String), &tc); err != nil {
			s.db.log.Warn().Err(err).Str("message", msg.ID).Msg("ignoring malformed tool call")
		} else {
			msg.ToolCall = &tc
		}
	}
	return msg, nil
}
