package model

import (
	"errors"
	"time"
)

// DocumentStatus is the ingestion lifecycle state of a document.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusIndexed    DocumentStatus = "indexed"
	StatusFailed     DocumentStatus = "failed"
)

var ErrInvalidStatusTransition = errors.New("invalid document status transition")

// CanTransitionTo reports whether moving to next is a legal lifecycle step.
// The only legal sequence is pending -> processing -> (indexed | failed);
// terminal states never regress.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusIndexed || next == StatusFailed
	default:
		return false
	}
}

// Terminal reports whether the status is an end state of the lifecycle.
func (s DocumentStatus) Terminal() bool {
	return s == StatusIndexed || s == StatusFailed
}

type Document struct {
	ID        string         `gorm:"type:char(36);primaryKey" json:"id"`
	SessionID string         `gorm:"type:char(36);not null;index" json:"session_id"`
	Filename  string         `gorm:"size:256;not null" json:"filename"`
	MimeType  string         `gorm:"size:100" json:"mime_type"`
	FileSize  int64          `json:"file_size"`
	Status    DocumentStatus `gorm:"size:20;not null" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}
