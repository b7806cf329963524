// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/parley-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is returned when a conversation does not exist locally.
var ErrNotFound = errors.New("conversation not found")

// =============================================================================
// TYPES
// =============================================================================

// ConversationMeta summarizes one cached conversation for list views.
type ConversationMeta struct {
	ID           string
	Title        string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TranscriptStore persists conversation transcripts in a local SQLite
// database. It is safe for concurrent use; SQLite serializes writers
// behind a single connection.
type TranscriptStore struct {
	db *sql.DB
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

// DefaultPath returns the standard database location (~/.parley/transcripts.db).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".parley", "transcripts.db"), nil
}

// Open opens (creating if needed) the transcript database at path.
func Open(path string) (*TranscriptStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	store := &TranscriptStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close releases the database handle.
func (s *TranscriptStore) Close() error {
	return s.db.Close()
}

func (s *TranscriptStore) initSchema() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO NOTHING`,
		strconv.Itoa(SchemaVersion),
	)
	return err
}

// =============================================================================
// WRITING
// =============================================================================

// SaveTranscript replaces the cached transcript for a conversation.
// Replacing instead of diffing keeps the cache trivially consistent with
// the session store, which is the source of truth while running.
func (s *TranscriptStore) SaveTranscript(conversationID string, messages []*model.ChatMessage) error {
	if conversationID == "" {
		return errors.New("conversation id must not be empty")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.Exec(
		`INSERT INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		conversationID, now, now,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return err
	}

	insert, err := tx.Prepare(
		`INSERT INTO messages (id, conversation_id, position, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer insert.Close()

	for i, m := range messages {
		if _, err := insert.Exec(m.ID, conversationID, i, m.Role.String(), m.GetDisplayContent(), m.Timestamp.Unix()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SetTitle records the server-assigned title for a conversation, creating
// the conversation row if the title arrives before the first save.
func (s *TranscriptStore) SetTitle(conversationID, title string) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		conversationID, title, now, now,
	)
	return err
}

// Delete removes a conversation and its messages.
func (s *TranscriptStore) Delete(conversationID string) error {
	result, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, conversationID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// READING
// =============================================================================

// LoadTranscript returns the cached messages for a conversation, oldest
// first.
func (s *TranscriptStore) LoadTranscript(conversationID string) ([]*model.ChatMessage, error) {
	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM conversations WHERE id = ?`, conversationID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT id, role, content, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY position`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ChatMessage
	for rows.Next() {
		var id, role, content string
		var createdAt int64
		if err := rows.Scan(&id, &role, &content, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, &model.ChatMessage{
			ID:        id,
			Role:      model.RoleFromString(role),
			Content:   content,
			Timestamp: time.Unix(createdAt, 0),
		})
	}
	return out, rows.Err()
}

// List returns cached conversations, most recently updated first.
func (s *TranscriptStore) List() ([]ConversationMeta, error) {
	rows, err := s.db.Query(
		`SELECT c.id, c.title, c.created_at, c.updated_at, COUNT(m.id)
		 FROM conversations c LEFT JOIN messages m ON m.conversation_id = c.id
		 GROUP BY c.id ORDER BY c.updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConversationMeta
	for rows.Next() {
		var meta ConversationMeta
		var created, updated int64
		if err := rows.Scan(&meta.ID, &meta.Title, &created, &updated, &meta.MessageCount); err != nil {
			return nil, err
		}
		meta.CreatedAt = time.Unix(created, 0)
		meta.UpdatedAt = time.Unix(updated, 0)
		out = append(out, meta)
	}
	return out, rows.Err()
}

// Search returns conversations whose title or message content matches
// the query, most recently updated first.
func (s *TranscriptStore) Search(query string) ([]ConversationMeta, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.Query(
		`SELECT DISTINCT c.id, c.title, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM messages WHERE conversation_id = c.id)
		 FROM conversations c LEFT JOIN messages m ON m.conversation_id = c.id
		 WHERE c.title LIKE ? OR m.content LIKE ?
		 ORDER BY c.updated_at DESC`,
		pattern, pattern,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConversationMeta
	for rows.Next() {
		var meta ConversationMeta
		var created, updated int64
		if err := rows.Scan(&meta.ID, &meta.Title, &created, &updated, &meta.MessageCount); err != nil {
			return nil, err
		}
		meta.CreatedAt = time.Unix(created, 0)
		meta.UpdatedAt = time.Unix(updated, 0)
		out = append(out, meta)
	}
	return out, rows.Err()
}
