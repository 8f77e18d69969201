package unitofwork

import (
	"context"
	"errors"

	"skalgpt-be/internal/repository/contract"
)

var (
	ErrTxActive = errors.New("unit of work: transaction already started")
	ErrNoTx     = errors.New("unit of work: no active transaction")
)

// UnitOfWork hands out repositories bound to one optional transaction.
// Outside Begin/Commit they run against the pool directly.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	// Rollback is a no-op once the transaction has been committed, so it is safe to defer.
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	DocumentChunkRepository() contract.DocumentChunkRepository
}

// RepositoryFactory creates one short lived UnitOfWork per operation.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
