package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"docdex/pkg/logger"
)

// Publisher enqueues ingestion jobs on the job topic.
type Publisher struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewPublisher wraps an existing Kafka writer.
func NewPublisher(writer *kafka.Writer, log *logger.Logger) *Publisher {
	return &Publisher{writer: writer, log: log}
}

// Publish serializes the job and writes it keyed by task ID, so retries of
// the same task land on the same partition.
func (p *Publisher) Publish(ctx context.Context, job *IngestionJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal ingestion job: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(job.TaskID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish ingestion job %s: %w", job.TaskID, err)
	}

	p.log.WithPayload(map[string]interface{}{"task_id": job.TaskID}).Info("Published ingestion job")
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
