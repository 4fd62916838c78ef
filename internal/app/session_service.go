package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"docuchat/internal/model"
	"docuchat/internal/repository"
)

// VectorPurger removes all indexed entries of a session; implemented by
// vector.Gateway.
type VectorPurger interface {
	Purge(ctx context.Context, sessionID string) error
}

// SessionService owns the session lifecycle: creation, lookup, and the
// cascading delete that is the only way session data ever goes away.
type SessionService struct {
	sessions *repository.SessionRepository
	purger   VectorPurger
	cache    HistoryCache
	logger   *slog.Logger
}

func NewSessionService(sessions *repository.SessionRepository, purger VectorPurger, cache HistoryCache, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{sessions: sessions, purger: purger, cache: cache, logger: logger}
}

func (s *SessionService) Create(ctx context.Context, metadata map[string]any) (*model.Session, error) {
	session := &model.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
	session.SetMetadata(metadata)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Delete removes the session and everything scoped to it: vector entries,
// messages, documents, and the cached history window.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.purger.Purge(ctx, id); err != nil {
		return err
	}
	if err := s.sessions.DeleteCascade(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.DeleteHistory(ctx, id); err != nil {
			s.logger.Warn("drop cached history failed", "session_id", id, "error", err)
		}
	}
	return nil
}
