package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentChunk struct {
	Id        uuid.UUID
	Content   string
	Metadata  map[string]interface{}
	Embedding []float32
	CreatedAt time.Time
}

// ScoredDocumentChunk carries the cosine similarity of a search hit.
type ScoredDocumentChunk struct {
	Chunk      *DocumentChunk
	Similarity float64
}
