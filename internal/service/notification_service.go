package service

import (
	"context"
	"fmt"

	"skalgpt-be/internal/dto"
	"skalgpt-be/internal/pkg/logger"
	"skalgpt-be/pkg/events"
	pktNats "skalgpt-be/pkg/nats"

	"github.com/google/uuid"
)

// Websocket event types.
const EventSessionTitleUpdated = "session_title_updated"

const notificationModule = "NotificationService"

// NotificationDelivery defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, eventType string, data interface{})
}

// EventSubscriber is the part of the NATS subscriber the relay needs.
type EventSubscriber interface {
	Subscribe(subject string, durableName string, handler pktNats.EventHandler) error
}

// NotificationService relays bus events to the owner's websocket connections.
type NotificationService struct {
	subscriber EventSubscriber
	delivery   NotificationDelivery
	logger     logger.ILogger
}

func NewNotificationService(sub EventSubscriber, delivery NotificationDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() error {
	subject := pktNats.SubjectPrefix + events.TypeSessionTitleUpdated
	if err := s.subscriber.Subscribe(subject, "title-notifier", s.handleEvent); err != nil {
		s.logger.Error(notificationModule, "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return err
	}
	s.logger.Info(notificationModule, fmt.Sprintf("Notification service started, listening to %s", subject), nil)
	return nil
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	if event.EventType() != events.TypeSessionTitleUpdated {
		return nil
	}

	payload := event.Payload()
	userID, err := uuid.Parse(fmt.Sprint(payload["user_id"]))
	if err != nil {
		s.logger.Warn(notificationModule, "title event without a valid user_id", map[string]interface{}{"payload": payload})
		return nil
	}
	sessionID, err := uuid.Parse(fmt.Sprint(payload["session_id"]))
	if err != nil {
		s.logger.Warn(notificationModule, "title event without a valid session_id", map[string]interface{}{"payload": payload})
		return nil
	}
	newTitle, _ := payload["title"].(string)

	s.delivery.Send(userID, EventSessionTitleUpdated, dto.SessionTitleUpdatedPayload{
		SessionId: sessionID,
		Title:     newTitle,
	})
	return nil
}
