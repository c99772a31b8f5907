package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/stackoverfix/internal/trace"
)

// WriteReport stores a normalized report under id. Writing the same id twice
// keeps the first copy.
func (s *Store) WriteReport(ctx context.Context, id uuid.UUID, source string, r trace.Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO trace_reports (id, source, exception, message, report)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		id, source, r.Exception, r.Message, body,
	)
	if err != nil {
		return fmt.Errorf("insert trace report: %w", err)
	}
	return nil
}

// GetReport fetches a stored report by ID.
func (s *Store) GetReport(ctx context.Context, id uuid.UUID) (*trace.Report, error) {
	var body []byte
	if err := s.pool.QueryRow(ctx, `SELECT report FROM trace_reports WHERE id = $1`, id).Scan(&body); err != nil {
		return nil, err
	}
	var r trace.Report
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}
