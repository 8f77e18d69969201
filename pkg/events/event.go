package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_TITLE_UPDATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the concrete event carried over the bus.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Publisher delivers events to the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }

const (
	TypeChatTurnCompleted   = "CHAT_TURN_COMPLETED"
	TypeSessionTitleUpdated = "SESSION_TITLE_UPDATED"
)

// ChatTurnCompleted is raised after the assistant reply of a turn is stored.
func ChatTurnCompleted(userID, sessionID, userMessageID, assistantMessageID uuid.UUID, replyBytes int) BaseEvent {
	return BaseEvent{
		Type: TypeChatTurnCompleted,
		Data: map[string]interface{}{
			"user_id":              userID.String(),
			"session_id":           sessionID.String(),
			"user_message_id":      userMessageID.String(),
			"assistant_message_id": assistantMessageID.String(),
			"reply_bytes":          replyBytes,
		},
		OccurredAt: time.Now(),
	}
}

// SessionTitleUpdated is raised when the async title job renames a session.
func SessionTitleUpdated(userID, sessionID uuid.UUID, title string) BaseEvent {
	return BaseEvent{
		Type: TypeSessionTitleUpdated,
		Data: map[string]interface{}{
			"user_id":    userID.String(),
			"session_id": sessionID.String(),
			"title":      title,
		},
		OccurredAt: time.Now(),
	}
}
