package model

import (
	"encoding/json"
	"time"
)

// VectorEntry stores one indexed chunk: embedding, text and session-scoping
// metadata. The embedding is stored as a JSON array of float32 for
// portability. The auto-increment ID preserves insertion order, which the
// search path relies on for stable tie-breaking.
type VectorEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"type:char(36);not null;index" json:"session_id"`
	DocumentID string    `gorm:"type:char(36);not null;index" json:"document_id"`
	Filename   string    `gorm:"size:256;not null" json:"filename"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Embedding  string    `gorm:"type:text" json:"-"` // JSON array of float32
	CreatedAt  time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (e *VectorEntry) EmbeddingVector() []float32 {
	if e.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(e.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (e *VectorEntry) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		e.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	e.Embedding = string(b)
}
