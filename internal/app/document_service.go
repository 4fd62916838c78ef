package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docuchat/internal/ingest"
	"docuchat/internal/model"
	"docuchat/internal/repository"
)

// JobPublisher hands an ingestion job to the background worker queue.
type JobPublisher interface {
	Publish(ctx context.Context, job ingest.Job) error
}

// DocumentService accepts uploads, registers the document record, and
// dispatches the ingestion run to the queue. The triggering request returns
// as soon as the record exists; progress is observable via document status.
type DocumentService struct {
	sessions  *repository.SessionRepository
	docs      *repository.DocumentRepository
	pipeline  *ingest.Pipeline
	publisher JobPublisher
	logger    *slog.Logger
}

func NewDocumentService(
	sessions *repository.SessionRepository,
	docs *repository.DocumentRepository,
	pipeline *ingest.Pipeline,
	publisher JobPublisher,
	logger *slog.Logger,
) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		sessions:  sessions,
		docs:      docs,
		pipeline:  pipeline,
		publisher: publisher,
		logger:    logger,
	}
}

// UploadInput carries one raw upload from the request adapter.
type UploadInput struct {
	SessionID string
	Filename  string
	MimeType  string
	Content   []byte
}

// Upload validates the request, registers the pending document and enqueues
// the ingestion job. The returned document is in status pending.
func (s *DocumentService) Upload(ctx context.Context, in UploadInput) (*model.Document, error) {
	in.Filename = strings.TrimSpace(in.Filename)
	if in.SessionID == "" || in.Filename == "" || len(in.Content) == 0 {
		return nil, ErrInvalidInput
	}
	if !ingest.SupportedMime(in.MimeType) {
		return nil, fmt.Errorf("%w: %s", ingest.ErrUnsupportedFormat, in.MimeType)
	}

	session, err := s.sessions.GetByID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	doc, job, err := s.pipeline.Register(ctx, ingest.Input{
		SessionID: in.SessionID,
		Filename:  in.Filename,
		MimeType:  in.MimeType,
		Content:   in.Content,
	})
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, job); err != nil {
		// The record exists but the job never reached the queue, so the
		// document would be stuck at pending. Surface that as failed.
		s.logger.Error("enqueue ingest job failed", "document_id", doc.ID, "error", err)
		if abortErr := s.pipeline.Abort(ctx, doc.ID); abortErr != nil {
			s.logger.Error("abort unpublished document failed", "document_id", doc.ID, "error", abortErr)
		}
		return nil, fmt.Errorf("enqueue ingest job failed: %w", err)
	}
	return doc, nil
}

// List returns the session's documents, newest first, with their current
// lifecycle status.
func (s *DocumentService) List(ctx context.Context, sessionID string) ([]model.Document, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return s.docs.ListBySessionID(ctx, sessionID)
}
