package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/stackoverfix/internal/session"
)

var _ session.Store = (*Store)(nil)

// Get fetches a session by ID.
func (s *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_prompt, code_snippet, stack_trace, response, updated_at
		FROM sessions WHERE id = $1`, id)

	var sess session.Session
	var trace []byte
	err := row.Scan(&sess.ID, &sess.UserPrompt, &sess.CodeSnippet, &trace, &sess.Response, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.StackTrace = trace
	return &sess, nil
}

// Put creates or replaces a session.
func (s *Store) Put(ctx context.Context, sess *session.Session) error {
	var trace any
	if len(sess.StackTrace) > 0 {
		trace = string(sess.StackTrace)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_prompt, code_snippet, stack_trace, response, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, now())
		ON CONFLICT (id)
		DO UPDATE SET
			user_prompt = $2,
			code_snippet = $3,
			stack_trace = $4::jsonb,
			response = $5,
			updated_at = now()`,
		sess.ID, sess.UserPrompt, sess.CodeSnippet, trace, sess.Response,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}
