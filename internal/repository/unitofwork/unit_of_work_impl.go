package unitofwork

import (
	"context"

	"skalgpt-be/internal/repository/contract"
	"skalgpt-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type gormFactory struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &gormFactory{db: db}
}

func (f *gormFactory) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return &gormUnitOfWork{db: f.db}
}

type gormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

func (u *gormUnitOfWork) conn() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *gormUnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return ErrTxActive
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *gormUnitOfWork) Commit() error {
	if u.tx == nil {
		return ErrNoTx
	}
	tx := u.tx
	u.tx = nil
	return tx.Commit().Error
}

func (u *gormUnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	tx := u.tx
	u.tx = nil
	return tx.Rollback().Error
}

func (u *gormUnitOfWork) ChatSessionRepository() contract.ChatSessionRepository {
	return implementation.NewChatSessionRepository(u.conn())
}

func (u *gormUnitOfWork) ChatMessageRepository() contract.ChatMessageRepository {
	return implementation.NewChatMessageRepository(u.conn())
}

func (u *gormUnitOfWork) DocumentChunkRepository() contract.DocumentChunkRepository {
	return implementation.NewDocumentChunkRepository(u.conn())
}
