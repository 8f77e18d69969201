package dto

import (
	"time"

	"github.com/google/uuid"
)

// CreateSessionRequest opens a conversation from its first message. The
// message only seeds the title; the client sends it again through /send.
type CreateSessionRequest struct {
	Message         string `json:"message" validate:"required,min=1,max=8000"`
	ClientSessionId string `json:"client_session_id" validate:"omitempty,max=64"`
}

type CreateSessionResponse struct {
	Id                uuid.UUID `json:"id"`
	Title             string    `json:"title"`
	ClientSessionId   string    `json:"client_session_id,omitempty"`
	IsGeneratingTitle bool      `json:"is_generating_title"`
	CreatedAt         time.Time `json:"created_at"`
}

type GetAllSessionsResponse struct {
	Id                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	IsGeneratingTitle bool       `json:"is_generating_title"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id            uuid.UUID `json:"id"`
	ChatSessionId uuid.UUID `json:"chat_session_id"`
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}

// SendChatRequest carries one user turn. SessionId may be a server id or a
// client_session_id registered through CreateSession.
type SendChatRequest struct {
	SessionId string `json:"session_id" validate:"required,max=64"`
	Message   string `json:"message" validate:"required,min=1,max=8000"`
}

type RenameSessionRequest struct {
	Title string `json:"title" validate:"required,min=1,max=100"`
}

type RenameSessionResponse struct {
	Id    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type GenerateTitleRequest struct {
	Message string `json:"message" validate:"required,min=1,max=8000"`
}

type GenerateTitleResponse struct {
	Title string `json:"title"`
}

// PublishTitleJobMessage is the payload of the async title topic.
type PublishTitleJobMessage struct {
	SessionId uuid.UUID `json:"session_id"`
	UserId    uuid.UUID `json:"user_id"`
	Message   string    `json:"message"`
}

// SessionTitleUpdatedPayload is pushed to the owner's websocket connections.
type SessionTitleUpdatedPayload struct {
	SessionId uuid.UUID `json:"session_id"`
	Title     string    `json:"title"`
}
