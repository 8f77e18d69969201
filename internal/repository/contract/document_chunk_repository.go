package contract

import (
	"context"

	"skalgpt-be/internal/entity"
)

type DocumentChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	// SearchSimilar returns at most limit chunks ordered by cosine similarity, best first.
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*entity.ScoredDocumentChunk, error)
	Count(ctx context.Context) (int64, error)
}
