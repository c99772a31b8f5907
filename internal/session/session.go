// Package session keeps the state of a two-step analyze/refine exchange
// between requests.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID          string          `json:"session_id"`
	UserPrompt  string          `json:"user_prompt"`
	CodeSnippet string          `json:"code_snippet"`
	StackTrace  json.RawMessage `json:"stack_trace"`
	Response    string          `json:"response"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Store persists sessions by ID. Put replaces any existing session.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Close() error
}
