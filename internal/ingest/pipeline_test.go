package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/chunk"
	"docuchat/internal/model"
	"docuchat/internal/vector"
)

// testDocumentStore records every status a document passes through and
// enforces the same transition rules as the real repository.
type testDocumentStore struct {
	docs     map[string]*model.Document
	statuses map[string][]model.DocumentStatus
}

func newTestDocumentStore() *testDocumentStore {
	return &testDocumentStore{
		docs:     map[string]*model.Document{},
		statuses: map[string][]model.DocumentStatus{},
	}
}

func (s *testDocumentStore) Create(_ context.Context, doc *model.Document) error {
	s.docs[doc.ID] = doc
	s.statuses[doc.ID] = append(s.statuses[doc.ID], doc.Status)
	return nil
}

func (s *testDocumentStore) UpdateStatus(_ context.Context, id string, from, to model.DocumentStatus) error {
	doc, ok := s.docs[id]
	if !ok {
		return errors.New("unknown document")
	}
	if doc.Status != from || !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidStatusTransition, doc.Status, to)
	}
	doc.Status = to
	s.statuses[id] = append(s.statuses[id], to)
	return nil
}

type testIndexer struct {
	batches     [][]vector.Entry
	shouldError bool
}

func (i *testIndexer) Index(_ context.Context, entries []vector.Entry) error {
	if i.shouldError {
		return errors.New("indexer down")
	}
	for _, e := range entries {
		if err := e.Metadata.Validate(); err != nil {
			return err
		}
	}
	i.batches = append(i.batches, entries)
	return nil
}

func newTestPipeline(t *testing.T, docs DocumentStore, indexer Indexer) *Pipeline {
	t.Helper()
	chunker, err := chunk.New(32, 8)
	require.NoError(t, err)
	return NewPipeline(docs, chunker, indexer, nil)
}

func TestIngestHappyPath(t *testing.T) {
	docs := newTestDocumentStore()
	indexer := &testIndexer{}
	p := newTestPipeline(t, docs, indexer)

	content := []byte("A document about Go services. It explains chunking, retrieval, and session isolation in detail.")
	doc, err := p.Ingest(context.Background(), Input{
		SessionID: "session-1",
		Filename:  "notes.txt",
		MimeType:  MimeText,
		Content:   content,
	})
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, model.StatusIndexed, doc.Status)
	assert.Equal(t, int64(len(content)), doc.FileSize)

	assert.Equal(t,
		[]model.DocumentStatus{model.StatusPending, model.StatusProcessing, model.StatusIndexed},
		docs.statuses[doc.ID])

	// Every produced chunk is indexed in one batch, each stamped with the
	// full scope.
	require.Len(t, indexer.batches, 1)
	chunker, err := chunk.New(32, 8)
	require.NoError(t, err)
	assert.Len(t, indexer.batches[0], len(chunker.Split(string(content))))
	for _, e := range indexer.batches[0] {
		assert.Equal(t, "session-1", e.Metadata.SessionID)
		assert.Equal(t, doc.ID, e.Metadata.DocumentID)
		assert.Equal(t, "notes.txt", e.Metadata.Filename)
	}
}

func TestIngestRejectsUnsupportedFormat(t *testing.T) {
	docs := newTestDocumentStore()
	p := newTestPipeline(t, docs, &testIndexer{})

	doc, err := p.Ingest(context.Background(), Input{
		SessionID: "session-1",
		Filename:  "img.png",
		MimeType:  "image/png",
		Content:   []byte{0x89, 0x50},
	})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	require.NotNil(t, doc)
	assert.Equal(t,
		[]model.DocumentStatus{model.StatusPending, model.StatusProcessing, model.StatusFailed},
		docs.statuses[doc.ID])
}

func TestIngestRejectsEmptyDocument(t *testing.T) {
	docs := newTestDocumentStore()
	p := newTestPipeline(t, docs, &testIndexer{})

	doc, err := p.Ingest(context.Background(), Input{
		SessionID: "session-1",
		Filename:  "blank.txt",
		MimeType:  MimeText,
		Content:   []byte("   \n\n  "),
	})
	require.ErrorIs(t, err, ErrEmptyDocument)
	assert.Equal(t, model.StatusFailed, docs.docs[doc.ID].Status)
}

func TestIngestPropagatesIndexerFailure(t *testing.T) {
	docs := newTestDocumentStore()
	p := newTestPipeline(t, docs, &testIndexer{shouldError: true})

	doc, err := p.Ingest(context.Background(), Input{
		SessionID: "session-1",
		Filename:  "notes.txt",
		MimeType:  MimeText,
		Content:   []byte("some text to ingest"),
	})
	require.Error(t, err)
	assert.Equal(t,
		[]model.DocumentStatus{model.StatusPending, model.StatusProcessing, model.StatusFailed},
		docs.statuses[doc.ID])
}

func TestProcessRedeliveredJobIsNotReprocessed(t *testing.T) {
	docs := newTestDocumentStore()
	indexer := &testIndexer{}
	p := newTestPipeline(t, docs, indexer)

	doc, job, err := p.Register(context.Background(), Input{
		SessionID: "session-1",
		Filename:  "notes.txt",
		MimeType:  MimeText,
		Content:   []byte("some text to ingest"),
	})
	require.NoError(t, err)
	require.NoError(t, p.Process(context.Background(), job))

	// A redelivery of the same job must fail the pending->processing guard
	// instead of indexing the document twice.
	err = p.Process(context.Background(), job)
	require.ErrorIs(t, err, model.ErrInvalidStatusTransition)
	assert.Len(t, indexer.batches, 1)
	assert.Equal(t, model.StatusIndexed, docs.docs[doc.ID].Status)
}

func TestAbortWalksPendingDocumentToFailed(t *testing.T) {
	docs := newTestDocumentStore()
	p := newTestPipeline(t, docs, &testIndexer{})

	doc, _, err := p.Register(context.Background(), Input{
		SessionID: "session-1",
		Filename:  "notes.txt",
		MimeType:  MimeText,
		Content:   []byte("some text to ingest"),
	})
	require.NoError(t, err)

	require.NoError(t, p.Abort(context.Background(), doc.ID))
	assert.Equal(t,
		[]model.DocumentStatus{model.StatusPending, model.StatusProcessing, model.StatusFailed},
		docs.statuses[doc.ID])
}

func TestAbortRefusesTerminalDocument(t *testing.T) {
	docs := newTestDocumentStore()
	p := newTestPipeline(t, docs, &testIndexer{})

	doc, err := p.Ingest(context.Background(), Input{
		SessionID: "session-1",
		Filename:  "notes.txt",
		MimeType:  MimeText,
		Content:   []byte("some text to ingest"),
	})
	require.NoError(t, err)

	err = p.Abort(context.Background(), doc.ID)
	require.ErrorIs(t, err, model.ErrInvalidStatusTransition)
	assert.Equal(t, model.StatusIndexed, docs.docs[doc.ID].Status)
}

func TestSupportedMime(t *testing.T) {
	assert.True(t, SupportedMime(MimePDF))
	assert.True(t, SupportedMime(MimeText))
	assert.False(t, SupportedMime("text/markdown"))
	assert.False(t, SupportedMime(""))
}
