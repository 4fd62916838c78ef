package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
	"docuchat/internal/vector"
)

// VectorRepository is the MySQL-backed vector.Store. Rows are selected by
// session id first, so similarity ranking never sees another session's
// entries; ranking runs in process over the filtered candidate set.
type VectorRepository struct {
	db *gorm.DB
}

func NewVectorRepository(db *gorm.DB) *VectorRepository {
	return &VectorRepository{db: db}
}

func (r *VectorRepository) Add(ctx context.Context, entries []vector.StoredEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]model.VectorEntry, len(entries))
	for i, e := range entries {
		rows[i] = model.VectorEntry{
			SessionID:  e.Metadata.SessionID,
			DocumentID: e.Metadata.DocumentID,
			Filename:   e.Metadata.Filename,
			Content:    e.Content,
		}
		rows[i].SetEmbedding(e.Embedding)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("create vector entries failed: %w", err)
	}
	return nil
}

func (r *VectorRepository) Search(ctx context.Context, sessionID string, embedding []float32, k int) ([]vector.Result, error) {
	// Ordering by id keeps candidates in insertion order for the stable
	// tie-break in RankTopK.
	var rows []model.VectorEntry
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load vector entries failed: %w", err)
	}

	results := make([]vector.Result, len(rows))
	for i := range rows {
		results[i] = vector.Result{
			Content: rows[i].Content,
			Metadata: vector.Metadata{
				SessionID:  rows[i].SessionID,
				DocumentID: rows[i].DocumentID,
				Filename:   rows[i].Filename,
			},
			Score: vector.CosineSimilarity(embedding, rows[i].EmbeddingVector()),
		}
	}
	return vector.RankTopK(results, k), nil
}

func (r *VectorRepository) Purge(ctx context.Context, sessionID string) error {
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&model.VectorEntry{}).Error; err != nil {
		return fmt.Errorf("purge vector entries failed: %w", err)
	}
	return nil
}
