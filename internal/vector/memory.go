package vector

import (
	"context"
	"sync"
)

// MemoryStore keeps embedded entries in process memory and ranks them by
// brute-force cosine similarity. Candidates are filtered by session id
// before any ranking happens. Suitable for tests and single-node runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []StoredEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Add(_ context.Context, entries []StoredEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *MemoryStore) Search(_ context.Context, sessionID string, embedding []float32, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Pre-filter by session before ranking; insertion order is preserved
	// so ties break stably.
	var results []Result
	for _, e := range s.entries {
		if e.Metadata.SessionID != sessionID {
			continue
		}
		results = append(results, Result{
			Content:  e.Content,
			Metadata: e.Metadata,
			Score:    CosineSimilarity(embedding, e.Embedding),
		})
	}
	return RankTopK(results, k), nil
}

func (s *MemoryStore) Purge(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.Metadata.SessionID != sessionID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}
