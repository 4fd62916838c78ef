package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"docuchat/internal/ai"
	"docuchat/internal/model"
	"docuchat/internal/vector"
)

const (
	defaultTopK          = 4
	defaultHistoryWindow = 10

	contextPromptHeader = "You are a helpful AI assistant. Use the following context from uploaded documents to answer the user's question accurately.\n\nContext from documents:\n"
	contextPromptFooter = "\n\nInstructions:\n- Answer based on the provided context when relevant\n- If the context doesn't contain the answer, say so\n- Be concise and helpful\n- Maintain conversation continuity"

	plainPrompt    = "You are a helpful AI assistant. Answer the user's questions concisely and accurately."
	fallbackPrompt = "You are a helpful assistant."

	// ApologyReply is returned when both the full RAG path and the
	// context-free fallback fail. A chat request never surfaces a raw
	// error to the user.
	ApologyReply = "I apologize, but I'm having trouble processing your request right now. Please try again later."
)

// Outcome tells the caller which tier of the degradation ladder produced
// the reply.
type Outcome string

const (
	OutcomeFull     Outcome = "full"     // retrieval + history + generation
	OutcomeDegraded Outcome = "degraded" // context-free generation
	OutcomeApology  Outcome = "apology"  // static reply, everything failed
)

// ChatResult is the reply plus how it was produced and which chunks fed it.
type ChatResult struct {
	Reply   string          `json:"reply"`
	Outcome Outcome         `json:"outcome"`
	Sources []vector.Result `json:"sources,omitempty"`
}

// MessageStore is the slice of message persistence the orchestrator needs.
// Implemented by repository.MessageRepository.
type MessageStore interface {
	Append(ctx context.Context, message *model.Message) error
	ListRecent(ctx context.Context, sessionID string, limit int) ([]model.Message, error)
}

// HistoryCache is an optional read cache in front of the message store.
// The cached window carries the limit it was fetched with so a later read
// with a larger limit is never served a shorter stale window.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string) (messages []model.Message, fetchedLimit int, hit bool, err error)
	SetHistory(ctx context.Context, sessionID string, messages []model.Message, limit int) error
	DeleteHistory(ctx context.Context, sessionID string) error
	MarkDirty(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

// Retriever is the session-filtered query side of the vector gateway.
type Retriever interface {
	Query(ctx context.Context, text, sessionID string, k int) []vector.Result
}

// Generator produces one completion from an ordered message list.
// Implemented by ai.Client.
type Generator interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// ChatService answers user messages by combining session-scoped retrieval
// with conversation history, degrading through a context-free generation to
// a fixed apology when backends fail.
type ChatService struct {
	messages      MessageStore
	historyCache  HistoryCache
	retriever     Retriever
	generator     Generator
	topK          int
	historyWindow int
	logger        *slog.Logger
}

func NewChatService(
	messages MessageStore,
	historyCache HistoryCache,
	retriever Retriever,
	generator Generator,
	topK int,
	historyWindow int,
	logger *slog.Logger,
) *ChatService {
	if topK <= 0 {
		topK = defaultTopK
	}
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		messages:      messages,
		historyCache:  historyCache,
		retriever:     retriever,
		generator:     generator,
		topK:          topK,
		historyWindow: historyWindow,
		logger:        logger,
	}
}

// Respond runs one chat turn. The incoming user message is recorded first
// and stays recorded whatever happens downstream; the reply is always
// natural-language text, never an error.
func (s *ChatService) Respond(ctx context.Context, sessionID, content string) (*ChatResult, error) {
	content = strings.TrimSpace(content)
	if sessionID == "" || content == "" {
		return nil, ErrInvalidInput
	}

	userMessage := &model.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.invalidateHistory(ctx, sessionID)
	if err := s.messages.Append(ctx, userMessage); err != nil {
		// The turn still proceeds; the message just cannot inform later
		// turns.
		s.logger.Error("append user message failed", "session_id", sessionID, "error", err)
	}

	reply, sources, err := s.respondFull(ctx, sessionID, content, userMessage.ID)
	if err == nil {
		s.appendAssistant(ctx, sessionID, reply)
		return &ChatResult{Reply: reply, Outcome: OutcomeFull, Sources: sources}, nil
	}
	s.logger.Error("chat generation failed, falling back", "session_id", sessionID, "error", err)

	// Second tier: one retry with a minimal instruction-only prompt, no
	// history and no context.
	reply, err = s.generator.Complete(ctx, []ai.ChatMessage{
		{Role: model.RoleSystem, Content: fallbackPrompt},
		{Role: model.RoleUser, Content: content},
	})
	if err == nil {
		return &ChatResult{Reply: strings.TrimSpace(reply), Outcome: OutcomeDegraded}, nil
	}
	s.logger.Error("fallback generation failed", "session_id", sessionID, "error", err)

	return &ChatResult{Reply: ApologyReply, Outcome: OutcomeApology}, nil
}

func (s *ChatService) respondFull(ctx context.Context, sessionID, content, currentMessageID string) (string, []vector.Result, error) {
	// History absence degrades the answer, it does not abort the turn.
	history, err := s.recentHistory(ctx, sessionID, s.historyWindow)
	if err != nil {
		s.logger.Error("load history failed", "session_id", sessionID, "error", err)
		history = nil
	}

	// The single most safety-critical call: retrieval restricted to this
	// session. A backend failure surfaces here as an empty result.
	sources := s.retriever.Query(ctx, content, sessionID, s.topK)

	prompt := buildPrompt(content, currentMessageID, history, sources)
	reply, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(reply), sources, nil
}

// buildPrompt assembles the generation request: one instruction message,
// the recent history excluding the just-appended current message, then the
// current user message.
func buildPrompt(content, currentMessageID string, history []model.Message, sources []vector.Result) []ai.ChatMessage {
	instruction := plainPrompt
	if len(sources) > 0 {
		texts := make([]string, len(sources))
		for i, src := range sources {
			texts[i] = src.Content
		}
		instruction = contextPromptHeader + strings.Join(texts, "\n\n") + contextPromptFooter
	}

	messages := make([]ai.ChatMessage, 0, len(history)+2)
	messages = append(messages, ai.ChatMessage{Role: model.RoleSystem, Content: instruction})
	for _, m := range history {
		if m.ID == currentMessageID {
			continue
		}
		role := m.Role
		if role == "" {
			role = model.RoleUser
		}
		messages = append(messages, ai.ChatMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, ai.ChatMessage{Role: model.RoleUser, Content: content})
	return messages
}

// History returns the bounded chronological window for a session, serving
// from the cache when it is clean.
func (s *ChatService) History(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = s.historyWindow
	}
	return s.recentHistory(ctx, sessionID, limit)
}

func (s *ChatService) recentHistory(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			cached, fetchedLimit, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID)
			if cacheErr == nil && hit && windowSatisfies(cached, fetchedLimit, limit) {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messages.ListRecent(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent messages failed: %w", err)
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages, limit)
		}
	}
	return messages, nil
}

// windowSatisfies reports whether a cached window fetched with
// fetchedLimit can answer a read for limit messages: either it already
// holds that many, or it holds the session's entire history (the store
// returned fewer messages than were asked for).
func windowSatisfies(messages []model.Message, fetchedLimit, limit int) bool {
	return len(messages) >= limit || len(messages) < fetchedLimit
}

func (s *ChatService) appendAssistant(ctx context.Context, sessionID, reply string) {
	s.invalidateHistory(ctx, sessionID)
	err := s.messages.Append(ctx, &model.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   reply,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.logger.Error("append assistant message failed", "session_id", sessionID, "error", err)
	}
}

func (s *ChatService) invalidateHistory(ctx context.Context, sessionID string) {
	if s.historyCache == nil {
		return
	}
	_ = s.historyCache.MarkDirty(ctx, sessionID)
	_ = s.historyCache.DeleteHistory(ctx, sessionID)
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
