package kafka

import (
	"fmt"

	"github.com/segmentio/kafka-go"

	"docdex/internal/config"
)

// EnsureTopic creates the configured topic if the broker does not know it
// yet. Safe to call from every binary at startup.
func EnsureTopic(cfg *config.KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("no Kafka brokers configured")
	}
	if cfg.Topic == "" {
		return fmt.Errorf("no Kafka topic configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial Kafka broker: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read Kafka partitions: %w", err)
	}
	for _, p := range partitions {
		if p.Topic == cfg.Topic {
			return nil
		}
	}

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.Topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create Kafka topic %s: %w", cfg.Topic, err)
	}
	return nil
}

// NewWriter builds a writer for the configured ingestion topic.
func NewWriter(cfg *config.KafkaConfig) *kafka.Writer {
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	})
}

// NewReader builds a consumer-group reader for the configured topic.
func NewReader(cfg *config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
}
