// Package history persists room chat messages in sqlite.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/avheld/coview/internal/domain"
)

type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserName  string    `json:"user_name"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_messages (
	id TEXT PRIMARY KEY,
	room_id TEXT NOT NULL,
	user_name TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_room_time ON chat_messages(room_id, created_at);
`

// Open opens (or creates) the chat history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Append(m Message) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history: missing database connection")
	}
	_, err := s.db.Exec(
		`INSERT INTO chat_messages (id, room_id, user_name, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.RoomID, m.UserName, m.Text, m.CreatedAt.Unix(),
	)
	return err
}

// Recent returns up to limit messages of a room, oldest first.
func (s *Store) Recent(roomID domain.RoomID, limit int) ([]Message, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("history: missing database connection")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, user_name, text, created_at FROM chat_messages
		 WHERE room_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		string(roomID), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var ts int64
		if err := rows.Scan(&m.ID, &m.UserName, &m.Text, &ts); err != nil {
			return nil, err
		}
		m.RoomID = string(roomID)
		m.CreatedAt = time.Unix(ts, 0)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Query walks newest-first for the LIMIT; present oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Purge deletes all messages of a room. Called when an empty room is
// dropped from the registry.
func (s *Store) Purge(roomID domain.RoomID) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history: missing database connection")
	}
	_, err := s.db.Exec(`DELETE FROM chat_messages WHERE room_id = ?`, string(roomID))
	return err
}
