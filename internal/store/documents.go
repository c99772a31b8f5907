package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Document struct {
	ID       uuid.UUID `json:"id"`
	Library  string    `json:"library"`
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Distance float64   `json:"distance"`
}

// InsertDocument adds a documentation chunk with its embedding to the index.
func (s *Store) InsertDocument(ctx context.Context, d Document, embedding []float64) (uuid.UUID, error) {
	id := d.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, library, url, title, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6::vector)`,
		id, d.Library, d.URL, d.Title, d.Content, pgVector(embedding),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

// NearestDocuments returns the k documents of library closest to embedding
// by cosine distance. An empty library searches every library.
func (s *Store) NearestDocuments(ctx context.Context, library string, embedding []float64, k int) ([]Document, error) {
	if k <= 0 {
		k = 5
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, library, url, title, content, embedding <=> $1::vector AS distance
		FROM documents
		WHERE ($2 = '' OR library = $2)
		ORDER BY distance
		LIMIT $3`,
		pgVector(embedding), library, k,
	)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Library, &d.URL, &d.Title, &d.Content, &d.Distance); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
