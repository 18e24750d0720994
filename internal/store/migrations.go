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
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				system      TEXT NOT NULL,
				summary     TEXT NOT NULL DEFAULT ''
			);

			CREATE TABLE messages (
				id               INTEGER PRIMARY KEY AUTOINCREMENT,
				conversation_id  INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
				created_at       TEXT NOT NULL DEFAULT (datetime('now')),
				role             TEXT NOT NULL CHECK (role IN ('user', 'self')),
				content          TEXT NOT NULL DEFAULT '',
				tool_calls       TEXT
			);

			CREATE INDEX idx_messages_conversation ON messages (conversation_id, id);
		`,
	},
}
