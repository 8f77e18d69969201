package vectorstore

import (
	"context"
	"fmt"
	"runtime"

	"skalgpt-be/pkg/embedding"
	"skalgpt-be/pkg/store"

	"github.com/philippgille/chromem-go"
)

// ChromemStore is a file-backed passage store for deployments without pgvector.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// EmbeddingFunc adapts an embedding provider to chromem. Documents are embedded
// with the RETRIEVAL_DOCUMENT task type.
func EmbeddingFunc(p embedding.EmbeddingProvider) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		res, err := p.Generate(ctx, text, embedding.TaskRetrievalDocument)
		if err != nil {
			return nil, err
		}
		return res.Embedding.Values, nil
	}
}

// NewChromemStore opens (or creates) the persistent collection under dir.
// An empty dir keeps everything in memory.
func NewChromemStore(dir, collection string, embedFunc chromem.EmbeddingFunc) (*ChromemStore, error) {
	var (
		db  *chromem.DB
		err error
	)
	if dir == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dir, false)
		if err != nil {
			return nil, fmt.Errorf("open vector db: %w", err)
		}
	}

	col, err := db.GetOrCreateCollection(collection, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("get/create collection: %w", err)
	}
	return &ChromemStore{db: db, collection: col}, nil
}

func (s *ChromemStore) SearchSimilar(ctx context.Context, vector []float32, k int) ([]store.Passage, error) {
	count := s.collection.Count()
	if count == 0 || k <= 0 {
		return []store.Passage{}, nil
	}
	if k > count {
		k = count
	}

	docs, err := s.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}

	passages := make([]store.Passage, 0, len(docs))
	for _, d := range docs {
		var metadata map[string]interface{}
		if len(d.Metadata) > 0 {
			metadata = make(map[string]interface{}, len(d.Metadata))
			for key, v := range d.Metadata {
				metadata[key] = v
			}
		}
		passages = append(passages, store.Passage{
			ID:         d.ID,
			Content:    d.Content,
			Similarity: float64(d.Similarity),
			Metadata:   metadata,
		})
	}
	return passages, nil
}

// AddDocuments writes documents; ones without an embedding are embedded first.
func (s *ChromemStore) AddDocuments(ctx context.Context, docs []chromem.Document) error {
	return s.collection.AddDocuments(ctx, docs, runtime.NumCPU())
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}
