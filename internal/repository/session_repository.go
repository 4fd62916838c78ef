package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

// GetByID returns the session, or nil when it does not exist.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

// DeleteCascade removes the session together with its messages and
// documents in one transaction. Vector entries are purged by the caller
// through the gateway.
func (r *SessionRepository) DeleteCascade(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&model.Document{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Session{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete session cascade failed: %w", err)
	}
	return nil
}
