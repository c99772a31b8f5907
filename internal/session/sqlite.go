package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	user_prompt  TEXT NOT NULL DEFAULT '',
	code_snippet TEXT NOT NULL DEFAULT '',
	stack_trace  TEXT,
	response     TEXT NOT NULL DEFAULT '',
	updated_at   TEXT NOT NULL
)`

// SQLite is a file-backed Store for single-node deployments.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_prompt, code_snippet, stack_trace, response, updated_at
		FROM sessions WHERE id = ?`, id)

	var (
		sess    Session
		trace   sql.NullString
		updated string
	)
	err := row.Scan(&sess.ID, &sess.UserPrompt, &sess.CodeSnippet, &trace, &sess.Response, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if trace.Valid {
		sess.StackTrace = []byte(trace.String)
	}
	if sess.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &sess, nil
}

func (s *SQLite) Put(ctx context.Context, sess *Session) error {
	updated := sess.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	var trace any
	if len(sess.StackTrace) > 0 {
		trace = string(sess.StackTrace)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_prompt, code_snippet, stack_trace, response, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_prompt = excluded.user_prompt,
			code_snippet = excluded.code_snippet,
			stack_trace = excluded.stack_trace,
			response = excluded.response,
			updated_at = excluded.updated_at`,
		sess.ID, sess.UserPrompt, sess.CodeSnippet, trace, sess.Response, updated.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
