package sqlite

import (
	"database/sql"
	"fmt"
)

// schema is applied idempotently on startup.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	sender               TEXT NOT NULL,
	receiver             TEXT NOT NULL,
	content              TEXT NOT NULL,
	sent_at              DATETIME NOT NULL,
	is_bullying          BOOLEAN NOT NULL DEFAULT 0,
	bullying_probability REAL NOT NULL DEFAULT 0,
	needs_review         BOOLEAN NOT NULL DEFAULT 0,
	is_read              BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender, receiver, sent_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_receiver_unread ON messages(receiver, is_read);

CREATE TABLE IF NOT EXISTS comments (
	id                   TEXT PRIMARY KEY,
	post_id              TEXT NOT NULL,
	user_id              INTEGER NOT NULL,
	content              TEXT NOT NULL,
	is_bullying          BOOLEAN NOT NULL DEFAULT 0,
	bullying_probability REAL NOT NULL DEFAULT 0,
	created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_comments_user ON comments(user_id, is_bullying);
`

// Migrate creates tables and indexes that do not exist yet.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
