package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"docuchat/internal/chunk"
	"docuchat/internal/model"
	"docuchat/internal/pkg/pdfextract"
	"docuchat/internal/vector"
)

const (
	MimePDF  = "application/pdf"
	MimeText = "text/plain"
)

// SupportedMime reports whether the declared MIME type can be parsed.
func SupportedMime(mimeType string) bool {
	return mimeType == MimePDF || mimeType == MimeText
}

// DocumentStore is the slice of document persistence the pipeline needs.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	UpdateStatus(ctx context.Context, id string, from, to model.DocumentStatus) error
}

// Indexer is the gateway operation the pipeline writes through.
type Indexer interface {
	Index(ctx context.Context, entries []vector.Entry) error
}

// Input describes one upload handed to the pipeline.
type Input struct {
	SessionID string
	Filename  string
	MimeType  string
	Content   []byte
}

// Job is the serialized form of an ingestion run, published to the ingest
// queue after the document record exists. Content is base64-encoded by the
// JSON codec.
type Job struct {
	DocumentID string `json:"document_id"`
	SessionID  string `json:"session_id"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
	Content    []byte `json:"content"`
}

// Pipeline runs the ingestion state machine for one document at a time:
// pending -> processing -> (indexed | failed). It is the sole writer of
// document status.
type Pipeline struct {
	docs    DocumentStore
	chunker *chunk.Chunker
	indexer Indexer
	logger  *slog.Logger
}

func NewPipeline(docs DocumentStore, chunker *chunk.Chunker, indexer Indexer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{docs: docs, chunker: chunker, indexer: indexer, logger: logger}
}

// Register creates the pending document record and returns it together with
// the job to hand to a background worker. The record makes ingestion status
// observable independently of the triggering request.
func (p *Pipeline) Register(ctx context.Context, in Input) (*model.Document, Job, error) {
	doc := &model.Document{
		ID:        uuid.NewString(),
		SessionID: in.SessionID,
		Filename:  in.Filename,
		MimeType:  in.MimeType,
		FileSize:  int64(len(in.Content)),
		Status:    model.StatusPending,
	}
	if err := p.docs.Create(ctx, doc); err != nil {
		return nil, Job{}, err
	}
	job := Job{
		DocumentID: doc.ID,
		SessionID:  in.SessionID,
		Filename:   in.Filename,
		MimeType:   in.MimeType,
		Content:    in.Content,
	}
	return doc, job, nil
}

// Process runs the parse -> chunk -> stamp -> index stages for a registered
// document and advances its status to a terminal state. Errors after
// processing begins mark the document failed and are re-surfaced to the
// caller; only retrieval errors are ever swallowed, never ingestion ones.
func (p *Pipeline) Process(ctx context.Context, job Job) error {
	if err := p.docs.UpdateStatus(ctx, job.DocumentID, model.StatusPending, model.StatusProcessing); err != nil {
		return err
	}

	if err := p.process(ctx, job); err != nil {
		p.logger.Error("document ingestion failed",
			"document_id", job.DocumentID,
			"session_id", job.SessionID,
			"filename", job.Filename,
			"error", err)
		if statusErr := p.docs.UpdateStatus(ctx, job.DocumentID, model.StatusProcessing, model.StatusFailed); statusErr != nil {
			p.logger.Error("mark document failed", "document_id", job.DocumentID, "error", statusErr)
		}
		return err
	}

	if err := p.docs.UpdateStatus(ctx, job.DocumentID, model.StatusProcessing, model.StatusIndexed); err != nil {
		return err
	}
	return nil
}

// Abort walks a registered document straight to failed without running
// any stage. Used when the job carrying it can no longer be processed,
// so the document does not sit at pending with nothing left to move it.
func (p *Pipeline) Abort(ctx context.Context, documentID string) error {
	if err := p.docs.UpdateStatus(ctx, documentID, model.StatusPending, model.StatusProcessing); err != nil {
		return err
	}
	return p.docs.UpdateStatus(ctx, documentID, model.StatusProcessing, model.StatusFailed)
}

// Ingest is the synchronous path: register then process in one call.
func (p *Pipeline) Ingest(ctx context.Context, in Input) (*model.Document, error) {
	doc, job, err := p.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := p.Process(ctx, job); err != nil {
		return doc, err
	}
	doc.Status = model.StatusIndexed
	return doc, nil
}

func (p *Pipeline) process(ctx context.Context, job Job) error {
	text, err := parse(job.MimeType, job.Content)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyDocument
	}

	spans := p.chunker.Split(text)

	// Stamp every chunk with its scope before anything is indexed. The
	// gateway rejects the whole batch if a tag were ever missing.
	entries := make([]vector.Entry, len(spans))
	for i, span := range spans {
		entries[i] = vector.Entry{
			Content: span,
			Metadata: vector.Metadata{
				SessionID:  job.SessionID,
				DocumentID: job.DocumentID,
				Filename:   job.Filename,
			},
		}
	}

	if err := p.indexer.Index(ctx, entries); err != nil {
		return fmt.Errorf("index chunks failed: %w", err)
	}

	p.logger.Info("document ingested",
		"document_id", job.DocumentID,
		"session_id", job.SessionID,
		"filename", job.Filename,
		"chunks", len(entries))
	return nil
}

func parse(mimeType string, content []byte) (string, error) {
	switch mimeType {
	case MimePDF:
		return pdfextract.ExtractText(content)
	case MimeText:
		return string(content), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}
}
