package history

import (
	"context"
	"time"

	"skalgpt-be/internal/constant"
	"skalgpt-be/internal/entity"
	"skalgpt-be/internal/repository/specification"
	"skalgpt-be/internal/repository/unitofwork"
	"skalgpt-be/pkg/llm"
	"skalgpt-be/pkg/metrics"

	"github.com/google/uuid"
)

// Windower loads the tail of a conversation for the model.
type Windower struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewWindower(uowFactory unitofwork.RepositoryFactory) *Windower {
	return &Windower{uowFactory: uowFactory}
}

// Load returns the newest window messages of the session oldest first, with
// roles mapped to model turns. An empty session yields an empty slice.
func (w *Windower) Load(ctx context.Context, sessionId uuid.UUID, window int) ([]llm.Message, error) {
	defer metrics.ObserveStage(metrics.StageHistory, time.Now())

	if window <= 0 {
		return []llm.Message{}, nil
	}

	uow := w.uowFactory.NewUnitOfWork(ctx)
	recent, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: window},
	)
	if err != nil {
		return nil, err
	}

	return ToTurns(recent), nil
}

// ToTurns reverses a newest-first slice into chronological model turns.
func ToTurns(newestFirst []*entity.ChatMessage) []llm.Message {
	messages := make([]llm.Message, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		msg := newestFirst[i]

		var role string
		switch msg.Role {
		case constant.ChatMessageRoleUser:
			role = constant.ModelTurnUser
		case constant.ChatMessageRoleAssistant:
			role = constant.ModelTurnModel
		default:
			continue
		}
		messages = append(messages, llm.Message{
			Role:    role,
			Content: msg.Content,
		})
	}
	return messages
}
