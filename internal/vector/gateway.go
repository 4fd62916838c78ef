package vector

import (
	"context"
	"fmt"
	"log/slog"
)

// Batch size for embedding calls; many providers cap array input length.
const embeddingBatchSize = 10

// Embedder turns text into vectors. Implemented by ai.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// StoredEntry is an entry with its embedding, as held by a Store.
type StoredEntry struct {
	Entry
	Embedding []float32
}

// Store persists embedded entries and searches them. Search must restrict
// candidates to the given session id before ranking; it never ranks across
// sessions.
type Store interface {
	Add(ctx context.Context, entries []StoredEntry) error
	Search(ctx context.Context, sessionID string, embedding []float32, k int) ([]Result, error)
	Purge(ctx context.Context, sessionID string) error
}

// Gateway is the sole boundary between the core and the embedding/vector
// backend. It enforces the session-tag precondition on writes and the
// session pre-filter on reads.
type Gateway struct {
	embedder Embedder
	store    Store
	logger   *slog.Logger
}

func NewGateway(embedder Embedder, store Store, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{embedder: embedder, store: store, logger: logger}
}

// Index embeds and stores the given entries as one batch. Every entry must
// carry a session id; a single untagged entry fails the whole call and
// nothing from the batch is indexed.
func (g *Gateway) Index(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if err := e.Metadata.Validate(); err != nil {
			return err
		}
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Content
	}

	var embeddings [][]float32
	for i := 0; i < len(texts); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := g.embedder.EmbedBatch(ctx, texts[i:end])
		if err != nil {
			return fmt.Errorf("embed batch failed: %w", err)
		}
		embeddings = append(embeddings, batch...)
	}
	if len(embeddings) != len(entries) {
		return fmt.Errorf("embedding count mismatch: got %d for %d entries", len(embeddings), len(entries))
	}

	stored := make([]StoredEntry, len(entries))
	for i := range entries {
		stored[i] = StoredEntry{Entry: entries[i], Embedding: embeddings[i]}
	}
	if err := g.store.Add(ctx, stored); err != nil {
		return fmt.Errorf("store entries failed: %w", err)
	}

	g.logger.Info("indexed entries",
		"count", len(entries),
		"session_id", entries[0].Metadata.SessionID)
	return nil
}

// Query embeds text and searches entries belonging to sessionID, most
// similar first. Any backend failure is logged and degrades to an empty
// result; retrieval is never fatal to the caller.
func (g *Gateway) Query(ctx context.Context, text, sessionID string, k int) []Result {
	embedding, err := g.embedder.Embed(ctx, text)
	if err != nil {
		g.logger.Error("query embedding failed", "session_id", sessionID, "error", err)
		return nil
	}

	results, err := g.store.Search(ctx, sessionID, embedding, k)
	if err != nil {
		g.logger.Error("vector search failed", "session_id", sessionID, "error", err)
		return nil
	}
	return results
}

// Purge removes every entry belonging to sessionID. Used by the session
// cascade delete.
func (g *Gateway) Purge(ctx context.Context, sessionID string) error {
	return g.store.Purge(ctx, sessionID)
}
