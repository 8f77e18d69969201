package entity

import (
	"strings"
	"time"

	"skalgpt-be/internal/constant"

	"github.com/google/uuid"
)

// ChatSession is one conversation thread of a single user.
type ChatSession struct {
	Id     uuid.UUID
	UserId uuid.UUID
	// Title starts as the placeholder and is replaced by the title job or a manual rename.
	Title     string
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}

func (s *ChatSession) HasPlaceholderTitle() bool {
	return strings.TrimSpace(s.Title) == constant.ChatSessionPlaceholderTitle
}
