package tasks

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	"docdex/pkg/logger"
)

// JobHandler processes one ingestion job. A returned error marks the task
// failed but does not stop the consumer.
type JobHandler func(ctx context.Context, job *IngestionJob) error

// Consumer reads ingestion jobs from the job topic and dispatches them to a
// handler, committing each message after it is handled.
type Consumer struct {
	reader *kafka.Reader
	log    *logger.Logger
}

// NewConsumer wraps an existing consumer-group reader.
func NewConsumer(reader *kafka.Reader, log *logger.Logger) *Consumer {
	return &Consumer{reader: reader, log: log}
}

// Run blocks fetching and handling messages until the context is canceled.
// Malformed messages are committed and skipped.
func (c *Consumer) Run(ctx context.Context, handler JobHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		var job IngestionJob
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			c.log.WithError(err).Error("Dropping malformed ingestion job message")
		} else if err := handler(ctx, &job); err != nil {
			c.log.WithPayload(map[string]interface{}{
				"task_id": job.TaskID,
			}).WithError(err).Error("Ingestion job failed")
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.WithError(err).Error("Failed to commit job message")
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
