package search

import (
	"context"

	"skalgpt-be/internal/repository/unitofwork"
	"skalgpt-be/pkg/store"
)

// PgvectorStore searches the document_chunks table.
type PgvectorStore struct {
	repoFactory unitofwork.RepositoryFactory
}

func NewPgvectorStore(repoFactory unitofwork.RepositoryFactory) *PgvectorStore {
	return &PgvectorStore{repoFactory: repoFactory}
}

func (s *PgvectorStore) SearchSimilar(ctx context.Context, vector []float32, k int) ([]store.Passage, error) {
	uow := s.repoFactory.NewUnitOfWork(ctx)
	scored, err := uow.DocumentChunkRepository().SearchSimilar(ctx, vector, k)
	if err != nil {
		return nil, err
	}

	passages := make([]store.Passage, 0, len(scored))
	for _, res := range scored {
		passages = append(passages, store.Passage{
			ID:         res.Chunk.Id.String(),
			Content:    res.Chunk.Content,
			Similarity: res.Similarity,
			Metadata:   res.Chunk.Metadata,
		})
	}
	return passages, nil
}
