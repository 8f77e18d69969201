package service

import (
	"context"
	"encoding/json"
	"time"

	"skalgpt-be/internal/dto"
	"skalgpt-be/internal/pkg/logger"
	"skalgpt-be/internal/repository/memory"
	"skalgpt-be/internal/repository/specification"
	"skalgpt-be/internal/repository/unitofwork"
	"skalgpt-be/pkg/events"
	"skalgpt-be/pkg/metrics"
	"skalgpt-be/pkg/rag/title"

	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	consumerModule  = "TitleConsumer"
	titleJobTimeout = 30 * time.Second

	titleJobUpdated = "updated"
	titleJobFailed  = "failed"
	titleJobSkipped = "skipped"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService turns queued title jobs into session titles. Failures are
// logged and swallowed; the session keeps its placeholder title.
type consumerService struct {
	subscriber     message.Subscriber
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	titleGenerator *title.Generator
	titleJobs      *memory.TitleJobRepository
	eventPublisher events.Publisher
	// delivery is set when no event bus relays SESSION_TITLE_UPDATED
	delivery NotificationDelivery
	logger   logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	titleGenerator *title.Generator,
	titleJobs *memory.TitleJobRepository,
	eventPublisher events.Publisher,
	delivery NotificationDelivery,
	logger logger.ILogger,
) IConsumerService {
	if eventPublisher == nil {
		eventPublisher = events.NopPublisher{}
	}
	return &consumerService{
		subscriber:     subscriber,
		topicName:      topicName,
		uowFactory:     uowFactory,
		titleGenerator: titleGenerator,
		titleJobs:      titleJobs,
		eventPublisher: eventPublisher,
		delivery:       delivery,
		logger:         logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	// Title jobs are never retried
	defer msg.Ack()

	var payload dto.PublishTitleJobMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerModule, "failed to unmarshal title job", map[string]interface{}{"error": err})
		metrics.TitleJobs.WithLabelValues(titleJobFailed).Inc()
		return
	}
	defer cs.titleJobs.Done(payload.SessionId)

	status := cs.handle(ctx, payload)
	metrics.TitleJobs.WithLabelValues(status).Inc()
}

func (cs *consumerService) handle(ctx context.Context, payload dto.PublishTitleJobMessage) string {
	details := map[string]interface{}{"session_id": payload.SessionId.String()}

	if cs.titleGenerator == nil {
		cs.logger.Warn(consumerModule, "title generator not configured", details)
		return titleJobFailed
	}

	jobCtx, cancel := context.WithTimeout(ctx, titleJobTimeout)
	defer cancel()

	generated, err := cs.titleGenerator.Generate(jobCtx, payload.Message)
	if err != nil {
		details["error"] = err
		cs.logger.Warn(consumerModule, "title generation failed, keeping placeholder", details)
		return titleJobFailed
	}

	uow := cs.uowFactory.NewUnitOfWork(jobCtx)
	chatSession, err := uow.ChatSessionRepository().FindOne(jobCtx,
		specification.ByID{ID: payload.SessionId},
		specification.UserOwnedBy{UserID: payload.UserId},
	)
	if err != nil {
		details["error"] = err
		cs.logger.Error(consumerModule, "failed to load session", details)
		return titleJobFailed
	}
	// Deleted, or renamed by the user in the meantime
	if chatSession == nil || !chatSession.HasPlaceholderTitle() {
		cs.logger.Info(consumerModule, "session gone or renamed, dropping generated title", details)
		return titleJobSkipped
	}

	if err := uow.ChatSessionRepository().UpdateTitle(jobCtx, payload.SessionId, generated); err != nil {
		details["error"] = err
		cs.logger.Error(consumerModule, "failed to update session title", details)
		return titleJobFailed
	}

	cs.notify(jobCtx, payload, generated)

	details["title"] = generated
	cs.logger.Info(consumerModule, "session title updated", details)
	return titleJobUpdated
}

func (cs *consumerService) notify(ctx context.Context, payload dto.PublishTitleJobMessage, generated string) {
	if err := cs.eventPublisher.Publish(ctx, events.SessionTitleUpdated(payload.UserId, payload.SessionId, generated)); err != nil {
		cs.logger.Warn(consumerModule, "failed to publish title event", map[string]interface{}{"error": err})
	}

	if cs.delivery != nil {
		cs.delivery.Send(payload.UserId, EventSessionTitleUpdated, dto.SessionTitleUpdatedPayload{
			SessionId: payload.SessionId,
			Title:     generated,
		})
	}
}
