// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache provides a local SQLite mirror of the backend catalog.
//
// The backend owns all data; this mirror only remembers the last successful
// fetch of projects, chats, and per-chat message history so the workspace can
// still show something useful when the backend is briefly unreachable. Writes
// are best-effort: a cache failure is reported to the caller but must never
// fail the operation that triggered it. The cache is never consulted on the
// send path.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/kagenokoe/kage-tui/internal/api"
)

// =============================================================================
// STORE
// =============================================================================

// Store is the SQLite-backed catalog mirror.
type Store struct {
	db *sql.DB
}

// Open creates or opens the mirror database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY churn entirely for this small mirror
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenDefault opens the mirror at ~/.kage/catalog.db.
func OpenDefault() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return Open(filepath.Join(home, ".kage", "catalog.db"))
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// schemaVersion is bumped on any table change. The mirror holds nothing the
// backend cannot resupply, so an old schema is dropped and rebuilt rather
// than migrated.
const schemaVersion = 2

func (s *Store) initSchema() error {
	var version int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("failed to read cache schema version: %w", err)
	}
	// Earlier schemas never set user_version, so any mismatch (including 0)
	// means the tables may predate the current layout. Dropping on a fresh
	// database is a no-op.
	if version != schemaVersion {
		if _, err := s.db.Exec(`
			DROP TABLE IF EXISTS projects;
			DROP TABLE IF EXISTS chats;
			DROP TABLE IF EXISTS messages;`); err != nil {
			return fmt.Errorf("failed to rebuild cache schema: %w", err)
		}
	}

	// The explicit seq column preserves the backend's list order: an id
	// column alone would come back id-ascending (id aliases rowid), losing
	// the most-recent-first chat ordering.
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS projects (
		id           INTEGER NOT NULL,
		seq          INTEGER NOT NULL,
		name         TEXT NOT NULL,
		context_text TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (id)
	);
	CREATE TABLE IF NOT EXISTS chats (
		id           INTEGER NOT NULL,
		seq          INTEGER NOT NULL,
		title        TEXT NOT NULL,
		project_id   INTEGER,
		context_text TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (id)
	);
	CREATE TABLE IF NOT EXISTS messages (
		chat_id   INTEGER NOT NULL,
		seq       INTEGER NOT NULL,
		role      TEXT NOT NULL,
		content   TEXT NOT NULL,
		timestamp TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (chat_id, seq)
	);
	PRAGMA user_version = %d;`, schemaVersion)
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return nil
}

// =============================================================================
// PROJECTS
// =============================================================================

// PutProjects replaces the mirrored project list wholesale.
func (s *Store) PutProjects(ctx context.Context, projects []api.Project) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM projects`); err != nil {
		return err
	}
	for i, p := range projects {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO projects (id, seq, name, context_text, created_at) VALUES (?, ?, ?, ?, ?)`,
			p.ID, i, p.Name, p.ContextText, p.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetProjects returns the mirrored project list, insertion order preserved.
func (s *Store) GetProjects(ctx context.Context) ([]api.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, context_text, created_at FROM projects ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []api.Project
	for rows.Next() {
		var p api.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.ContextText, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// =============================================================================
// CHATS
// =============================================================================

// PutChats replaces the mirrored chat list wholesale.
func (s *Store) PutChats(ctx context.Context, chats []api.Chat) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chats`); err != nil {
		return err
	}
	for i, c := range chats {
		var projectID interface{}
		if c.ProjectID != nil {
			projectID = *c.ProjectID
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chats (id, seq, title, project_id, context_text, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, i, c.Title, projectID, c.ContextText, c.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetChats returns the mirrored chat list, insertion order preserved.
func (s *Store) GetChats(ctx context.Context) ([]api.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, project_id, context_text, created_at FROM chats ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []api.Chat
	for rows.Next() {
		var c api.Chat
		var projectID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Title, &projectID, &c.ContextText, &c.CreatedAt); err != nil {
			return nil, err
		}
		if projectID.Valid {
			id := int(projectID.Int64)
			c.ProjectID = &id
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// =============================================================================
// MESSAGES
// =============================================================================

// PutMessages replaces the mirrored history of one chat wholesale. The
// sequence number preserves the backend's ordering; message ids are not used
// because optimistic local turns never have one.
func (s *Store) PutMessages(ctx context.Context, chatID int, messages []api.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chatID); err != nil {
		return err
	}
	for i, m := range messages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (chat_id, seq, role, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
			chatID, i, m.Role, m.Content, m.Timestamp)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetMessages returns the mirrored history of one chat in original order.
func (s *Store) GetMessages(ctx context.Context, chatID int) ([]api.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, timestamp FROM messages WHERE chat_id = ? ORDER BY seq`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []api.Message
	for rows.Next() {
		var m api.Message
		if err := rows.Scan(&m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		m.ChatID = chatID
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// DeleteChat removes one chat and its history from the mirror.
func (s *Store) DeleteChat(ctx context.Context, chatID int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chatID); err != nil {
		return err
	}
	return tx.Commit()
}
