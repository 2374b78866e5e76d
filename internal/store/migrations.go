package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create conversations and messages",
		SQL: `
			CREATE TABLE conversations (
				id          TEXT PRIMARY KEY,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE messages (
				seq              INTEGER PRIMARY KEY AUTOINCREMENT,
				id               TEXT NOT NULL UNIQUE,
				conversation_id  TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
				role             TEXT NOT NULL,
				content          TEXT NOT NULL,
				tool_call        TEXT,
				timestamp        TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_messages_conversation ON messages (conversation_id, seq);
		`,
	},
	{
		Version: 2,
		Name:    "create message full-text index",
		SQL: `
			CREATE VIRTUAL TABLE messages_fts USING fts5(
				content,
				content='messages',
				content_rowid='seq'
			);

			CREATE TRIGGER messages_ai AFTER INSERT ON messages BEGIN
				INSERT INTO messages_fts(rowid, content) VALUES (new.seq, new.content);
			END;

			CREATE TRIGGER messages_ad AFTER DELETE ON messages BEGIN
				INSERT INTO messages_fts(messages_fts, rowid, content)
				VALUES ('delete', old.seq, old.content);
			END;
		`,
	},
	{
		Version: 3,
		Name:    "create action log",
		SQL: `
			CREATE TABLE action_log (
				seq              INTEGER PRIMARY KEY AUTOINCREMENT,
				conversation_id  TEXT NOT NULL,
				action_id        TEXT NOT NULL,
				kind             TEXT NOT NULL,
				status           TEXT NOT NULL,
				summary          TEXT NOT NULL,
				detail           TEXT NOT NULL DEFAULT '',
				payload          TEXT,
				created_at       TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_action_log_conversation ON action_log (conversation_id, seq);
			CREATE INDEX idx_action_log_action ON action_log (action_id);
		`,
	},
}
