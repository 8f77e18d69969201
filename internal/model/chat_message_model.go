package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatMessage struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID      `gorm:"type:uuid;not null;index:idx_chat_messages_session_created,priority:1"`
	UserId        uuid.UUID      `gorm:"type:uuid;not null;index"`
	Role          string         `gorm:"type:varchar(16);not null"`
	Content       string         `gorm:"type:text;not null"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index:idx_chat_messages_session_created,priority:2"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
