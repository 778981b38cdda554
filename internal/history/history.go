// internal/history/history.go
// Package history persists the message log: every sent and received message
// with direction and timestamp, backed by SQLite.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Direction marks which way a message travelled.
type Direction string

const (
	Sent     Direction = "sent"
	Received Direction = "received"
)

// Message is one persisted message.
type Message struct {
	ID        int64     `json:"id"`
	Direction Direction `json:"direction"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
}

// Store is a SQLite-backed message log.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS message (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    direction TEXT NOT NULL CHECK (direction IN ('sent', 'received')),
    text TEXT NOT NULL,
    at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_message_at ON message(at);
`

// Open opens (creating if necessary) the message log at path.
// Safe to call on an existing database - the schema uses IF NOT EXISTS.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append records one message.
func (s *Store) Append(dir Direction, text string, at time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO message (direction, text, at) VALUES (?, ?, ?)`,
		string(dir), text, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Recent returns up to limit messages, newest first.
func (s *Store) Recent(limit int) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT id, direction, text, at FROM message ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var dir string
		if err := rows.Scan(&m.ID, &dir, &m.Text, &m.At); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Direction = Direction(dir)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
