package pg

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/sawatantra/api/shared/domain"
)

func (s *Storage) SaveDocument(ctx context.Context, content string, embedding []float64) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO knowledge_documents (content, embedding) VALUES ($1, $2) RETURNING id`,
		content, pq.Float64Array(embedding)).Scan(&id)
	if err != nil {
		return 0, wrap("SaveDocument", fmt.Errorf("failed to insert document: %w", err))
	}
	return id, nil
}

// Documents returns every stored document with its embedding. Ranking happens
// in the service since the table carries no vector index.
func (s *Storage) Documents(ctx context.Context) ([]domain.KnowledgeDocument, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, embedding, created_at FROM knowledge_documents ORDER BY id`)
	if err != nil {
		return nil, wrap("Documents", fmt.Errorf("failed to query documents: %w", err))
	}
	defer rows.Close()

	var docs []domain.KnowledgeDocument
	for rows.Next() {
		var d domain.KnowledgeDocument
		var embedding pq.Float64Array
		if err := rows.Scan(&d.Id, &d.Content, &embedding, &d.CreatedAt); err != nil {
			return nil, wrap("Documents", fmt.Errorf("failed to scan document: %w", err))
		}
		d.Embedding = embedding
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("Documents", err)
	}
	return docs, nil
}
