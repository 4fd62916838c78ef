package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/chunk"
	"docuchat/internal/ingest"
	"docuchat/internal/model"
	"docuchat/internal/vector"
)

type testDocumentStore struct {
	docs map[string]*model.Document
}

func (s *testDocumentStore) Create(_ context.Context, doc *model.Document) error {
	s.docs[doc.ID] = doc
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
	return nil
}

type testIndexer struct {
	batches [][]vector.Entry
}

func (i *testIndexer) Index(_ context.Context, entries []vector.Entry) error {
	i.batches = append(i.batches, entries)
	return nil
}

func newTestWorker(t *testing.T) (*IngestWorker, *testDocumentStore, *ingest.Pipeline) {
	t.Helper()
	docs := &testDocumentStore{docs: map[string]*model.Document{}}
	chunker, err := chunk.New(64, 8)
	require.NoError(t, err)
	pipeline := ingest.NewPipeline(docs, chunker, &testIndexer{}, nil)
	return NewIngestWorker(nil, pipeline, "ingest-test", nil), docs, pipeline
}

func TestHandleProcessesDeliveredJob(t *testing.T) {
	w, docs, pipeline := newTestWorker(t)
	ctx := context.Background()

	doc, job, err := pipeline.Register(ctx, ingest.Input{
		SessionID: "session-1",
		Filename:  "notes.txt",
		MimeType:  ingest.MimeText,
		Content:   []byte("text delivered through the queue"),
	})
	require.NoError(t, err)

	body, err := json.Marshal(job)
	require.NoError(t, err)
	w.handle(ctx, amqp.Delivery{Body: body})

	assert.Equal(t, model.StatusIndexed, docs.docs[doc.ID].Status)
}

func TestHandleMarksDocumentFailedOnUndecodableJob(t *testing.T) {
	w, docs, pipeline := newTestWorker(t)
	ctx := context.Background()

	doc, _, err := pipeline.Register(ctx, ingest.Input{
		SessionID: "session-1",
		Filename:  "notes.txt",
		MimeType:  ingest.MimeText,
		Content:   []byte("text"),
	})
	require.NoError(t, err)

	// The document id decodes but the payload as a whole does not, so the
	// job is dropped. The document must still reach a terminal state.
	body := []byte(`{"document_id":"` + doc.ID + `","content":12345}`)
	w.handle(ctx, amqp.Delivery{Body: body})

	assert.Equal(t, model.StatusFailed, docs.docs[doc.ID].Status)
}

func TestHandleIgnoresUndecodableJobWithoutDocumentID(t *testing.T) {
	w, docs, _ := newTestWorker(t)

	w.handle(context.Background(), amqp.Delivery{Body: []byte("not json at all")})
	assert.Empty(t, docs.docs)
}
