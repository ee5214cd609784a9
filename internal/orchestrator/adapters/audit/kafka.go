package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

// MessageWriter is the part of kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig locates the audit topic.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	Source       string
	BatchTimeout time.Duration
}

var _ ports.AuditSink = (*KafkaSink)(nil)

// KafkaSink publishes audit events as CloudEvents keyed by aggregate.
type KafkaSink struct {
	writer MessageWriter
	source string
}

// NewKafkaWriter builds a synchronous writer that waits for all in-sync replicas.
func NewKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
}

func NewKafkaSink(writer MessageWriter, source string) *KafkaSink {
	return &KafkaSink{writer: writer, source: source}
}

func (s *KafkaSink) Record(ctx context.Context, event ports.AuditEvent) error {
	envelope := NewEnvelope(s.source, event)
	data, err := envelope.Marshal()
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(envelope.Subject),
		Value: data,
		Headers: []kafka.Header{
			{Key: "ce-specversion", Value: []byte(envelope.SpecVersion)},
			{Key: "ce-type", Value: []byte(envelope.Type)},
			{Key: "ce-source", Value: []byte(envelope.Source)},
			{Key: "ce-id", Value: []byte(envelope.ID)},
			{Key: "ce-time", Value: []byte(envelope.Time.Format(time.RFC3339))},
			{Key: "content-type", Value: []byte(envelope.DataContentType)},
		},
		Time: envelope.Time,
	}
	if envelope.CorrelationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "ce-correlationid", Value: []byte(envelope.CorrelationID)})
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish audit event %s: %w", event.ID, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
