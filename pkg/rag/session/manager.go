package session

import (
	"context"

	"skalgpt-be/internal/entity"
	"skalgpt-be/internal/pkg/apperror"
	"skalgpt-be/internal/repository/memory"
	"skalgpt-be/internal/repository/specification"
	"skalgpt-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Manager checks session ownership, remembering positive answers in memory.
type Manager struct {
	sessionRepo *memory.SessionRepository
}

func NewManager(sessionRepo *memory.SessionRepository) *Manager {
	return &Manager{sessionRepo: sessionRepo}
}

// VerifyOwnership returns apperror.ErrSessionNotFound unless userId owns a
// live session sessionId. Unknown and foreign sessions look the same.
func (m *Manager) VerifyOwnership(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) error {
	if owned, known := m.sessionRepo.IsOwner(sessionId, userId); known {
		if owned {
			return nil
		}
		return apperror.ErrSessionNotFound
	}

	_, err := m.VerifyChatSession(ctx, uow, userId, sessionId)
	return err
}

// VerifyChatSession loads the session owned by userId, bypassing the cache.
func (m *Manager) VerifyChatSession(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.ErrSessionNotFound
	}
	m.sessionRepo.SaveOwner(session.Id, session.UserId)
	return session, nil
}

// Forget drops a deleted session from the ownership cache.
func (m *Manager) Forget(sessionId uuid.UUID) {
	m.sessionRepo.Delete(sessionId)
}

// Remember records the owner of a freshly created session.
func (m *Manager) Remember(sessionId, userId uuid.UUID) {
	m.sessionRepo.SaveOwner(sessionId, userId)
}
