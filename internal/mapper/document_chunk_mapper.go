package mapper

import (
	"encoding/json"

	"skalgpt-be/internal/entity"
	"skalgpt-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type DocumentChunkMapper struct{}

func NewDocumentChunkMapper() *DocumentChunkMapper {
	return &DocumentChunkMapper{}
}

func (m *DocumentChunkMapper) ToEntity(c *model.DocumentChunk) *entity.DocumentChunk {
	if c == nil {
		return nil
	}

	var metadata map[string]interface{}
	if len(c.Metadata) > 0 {
		// Malformed metadata is opaque to the pipeline; drop it rather than fail the search.
		_ = json.Unmarshal(c.Metadata, &metadata)
	}

	return &entity.DocumentChunk{
		Id:        c.Id,
		Content:   c.Content,
		Metadata:  metadata,
		Embedding: c.Embedding.Slice(),
		CreatedAt: c.CreatedAt,
	}
}

func (m *DocumentChunkMapper) ToModel(c *entity.DocumentChunk) *model.DocumentChunk {
	if c == nil {
		return nil
	}

	var metadata datatypes.JSON
	if c.Metadata != nil {
		if raw, err := json.Marshal(c.Metadata); err == nil {
			metadata = datatypes.JSON(raw)
		}
	}

	return &model.DocumentChunk{
		Id:        c.Id,
		Content:   c.Content,
		Metadata:  metadata,
		Embedding: pgvector.NewVector(c.Embedding),
		CreatedAt: c.CreatedAt,
	}
}
