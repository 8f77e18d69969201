package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is append-only; rows are never updated after insert.
type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	UserId        uuid.UUID
	Role          string // constant.ChatMessageRoleUser | constant.ChatMessageRoleAssistant
	Content       string
	CreatedAt     time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}
