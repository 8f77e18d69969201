package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// DocumentChunk is populated by an external ingestion job; this service only reads it.
type DocumentChunk struct {
	Id        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Content   string          `gorm:"type:text;not null"`
	Metadata  datatypes.JSON  `gorm:"type:jsonb"`
	Embedding pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
