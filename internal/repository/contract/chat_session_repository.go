package contract

import (
	"context"

	"skalgpt-be/internal/entity"
	"skalgpt-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ChatSessionRepository does not check ownership; callers pass UserOwnedBy.
type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	UpdateTitle(ctx context.Context, id uuid.UUID, title string) error
	// Touch moves the session to the top of its owner's list. It returns
	// apperror.ErrSessionNotFound when the session is gone or soft deleted.
	Touch(ctx context.Context, id uuid.UUID) error
	// Delete is a soft delete.
	Delete(ctx context.Context, id uuid.UUID) error
	// PurgeOlderThan hard deletes sessions idle for more than days and reports how many went.
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
	// FindOne returns nil, nil when nothing matches.
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
