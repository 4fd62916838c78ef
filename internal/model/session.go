package model

import (
	"encoding/json"
	"time"
)

// Session scopes all documents, messages and indexed vectors. It carries no
// state beyond its identifier and optional metadata, and is never mutated
// after creation.
type Session struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	Metadata  string    `gorm:"type:text" json:"-"` // JSON object
	CreatedAt time.Time `json:"created_at"`
}

// MetadataMap returns the parsed metadata; empty map on parse error.
func (s *Session) MetadataMap() map[string]any {
	if s.Metadata == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.Metadata), &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// SetMetadata stores the metadata as JSON.
func (s *Session) SetMetadata(m map[string]any) {
	if len(m) == 0 {
		s.Metadata = "{}"
		return
	}
	b, _ := json.Marshal(m)
	s.Metadata = string(b)
}
