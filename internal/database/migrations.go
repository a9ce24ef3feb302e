package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS processed_news (
    url TEXT NOT NULL,
    consumer_id TEXT NOT NULL,
    processed_at TEXT NOT NULL,
    parse_status TEXT NOT NULL CHECK (parse_status IN ('success', 'failed')),
    PRIMARY KEY (url, consumer_id)
);

CREATE TABLE IF NOT EXISTS knowledge_base (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL DEFAULT 'news',
    summary TEXT NOT NULL,
    processed INTEGER NOT NULL DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_knowledge_pending
    ON knowledge_base (type, processed);

CREATE TABLE IF NOT EXISTS vector_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT NOT NULL,
    knowledge_id INTEGER NOT NULL UNIQUE,
    content TEXT NOT NULL,
    embedding BLOB NOT NULL,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_vector_collection
    ON vector_records (collection);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	return migrations[len(migrations)-1].Version
}
