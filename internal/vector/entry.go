package vector

import "errors"

// ErrMissingSessionTag rejects any index batch containing an entry whose
// metadata lacks a session id. The whole batch is refused; nothing is
// indexed from it.
var ErrMissingSessionTag = errors.New("entry metadata is missing session id")

// Metadata is the fixed set of tags stamped on every indexed chunk. It is
// validated at the gateway boundary so an untagged entry can never reach
// the index.
type Metadata struct {
	SessionID  string `json:"session_id"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
}

// Validate enforces the session-isolation precondition.
func (m Metadata) Validate() error {
	if m.SessionID == "" {
		return ErrMissingSessionTag
	}
	return nil
}

// Entry is one chunk of text plus its scoping metadata, ready to be
// embedded and indexed.
type Entry struct {
	Content  string
	Metadata Metadata
}

// Result is one retrieved chunk, most similar first in a result slice.
type Result struct {
	Content  string
	Metadata Metadata
	Score    float32
}
