package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListBySessionID(ctx context.Context, sessionID string) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

// UpdateStatus advances the document lifecycle. The update is conditional on
// the expected current state, so an illegal transition (including any
// regression out of a terminal state) fails with
// model.ErrInvalidStatusTransition instead of being applied.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, from, to model.DocumentStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidStatusTransition, from, to)
	}
	res := r.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("update document status failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: document %s is not in state %s", model.ErrInvalidStatusTransition, id, from)
	}
	return nil
}
