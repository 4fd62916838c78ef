package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docuchat/internal/ingest"
)

// IngestWorker consumes ingestion jobs and runs the document pipeline for
// each. One delivery is processed at a time per worker, so no two runs ever
// interleave for the same document. On shutdown the in-flight job is
// drained before the worker stops, so a consumed document always reaches a
// terminal status.
type IngestWorker struct {
	conn      *amqp.Connection
	pipeline  *ingest.Pipeline
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, pipeline *ingest.Pipeline, queueName string, logger *slog.Logger) *IngestWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestWorker{
		conn:      conn,
		pipeline:  pipeline,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare ingest queue failed: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume ingest queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *IngestWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job ingest.Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.logger.Error("decode ingest job failed", "error", err, "body", string(d.Body))
		w.abortUndecodable(ctx, d.Body)
		_ = d.Nack(false, false)
		return
	}

	// Process marks the document failed itself on error, so the delivery
	// is acked either way. Requeueing would hit the pending->processing
	// guard and could never succeed.
	// The in-flight run is detached from the shutdown cancel so it drains
	// to a terminal status instead of being abandoned mid-pipeline.
	if err := w.pipeline.Process(context.WithoutCancel(ctx), job); err != nil {
		w.logger.Error("ingest job failed",
			"document_id", job.DocumentID,
			"session_id", job.SessionID,
			"error", err)
	}
	_ = d.Ack(false)
}

// abortUndecodable pulls the document id out of a payload the full job
// decode rejected. If one is there, the document is walked to failed
// rather than left at pending with no job to ever move it again.
func (w *IngestWorker) abortUndecodable(ctx context.Context, body []byte) {
	var partial struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(body, &partial); err != nil || partial.DocumentID == "" {
		return
	}
	if err := w.pipeline.Abort(context.WithoutCancel(ctx), partial.DocumentID); err != nil {
		w.logger.Error("abort document for dropped job failed",
			"document_id", partial.DocumentID,
			"error", err)
	}
}

// Close stops consuming and waits for the in-flight job to finish.
func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
