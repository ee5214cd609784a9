package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

func sampleEvent() ports.AuditEvent {
	return ports.AuditEvent{
		ID:            "evt-1",
		Action:        "inbound.record.approved",
		AggregateType: "inbound_record",
		AggregateID:   "rec-1",
		Actor:         "boss-1",
		FromStatus:    "pending_approval",
		ToStatus:      "approved",
		Details:       json.RawMessage(`{"approver":"boss-1"}`),
		OccurredAt:    time.Date(2025, 6, 4, 8, 0, 0, 0, time.UTC),
		CorrelationID: "approve-1",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaSink_PublishesCloudEvent(t *testing.T) {
	writer := &recordingWriter{}
	sink := NewKafkaSink(writer, "retail-ops/api")

	require.NoError(t, sink.Record(context.Background(), sampleEvent()))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "inbound_record/rec-1", string(msg.Key))
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "com.retailops.inbound.record.approved", headers["ce-type"])
	assert.Equal(t, "evt-1", headers["ce-id"])
	assert.Equal(t, "approve-1", headers["ce-correlationid"])

	var envelope Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &envelope))
	assert.Equal(t, "approved", envelope.Data.ToStatus)
	assert.Equal(t, "retail-ops/api", envelope.Source)
}

func TestKafkaSink_WrapsWriterError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("leader not available")}
	sink := NewKafkaSink(writer, "retail-ops/api")

	err := sink.Record(context.Background(), sampleEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "evt-1")
}

type recordingPublisher struct {
	exchange string
	key      string
	msg      amqp.Publishing
	confirms chan amqp.Confirmation
	ack      bool
}

func (p *recordingPublisher) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	p.exchange, p.key, p.msg = exchange, key, msg
	if p.confirms != nil {
		p.confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: p.ack}
	}
	return nil
}

func TestRabbitSink_RoutesByActionAndWaitsForConfirm(t *testing.T) {
	confirms := make(chan amqp.Confirmation, 1)
	pub := &recordingPublisher{confirms: confirms, ack: true}
	sink := NewRabbitSink(pub, confirms, "retail.audit", "retail-ops/api")

	require.NoError(t, sink.Record(context.Background(), sampleEvent()))

	assert.Equal(t, "retail.audit", pub.exchange)
	assert.Equal(t, "inbound.record.approved", pub.key)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)
	assert.Equal(t, "evt-1", pub.msg.MessageId)
	assert.Equal(t, "approve-1", pub.msg.CorrelationId)
}

func TestRabbitSink_NackIsAnError(t *testing.T) {
	confirms := make(chan amqp.Confirmation, 1)
	pub := &recordingPublisher{confirms: confirms, ack: false}
	sink := NewRabbitSink(pub, confirms, "retail.audit", "retail-ops/api")

	assert.Error(t, sink.Record(context.Background(), sampleEvent()))
}

type countingSink struct {
	calls int
	err   error
}

func (s *countingSink) Record(context.Context, ports.AuditEvent) error {
	s.calls++
	return s.err
}

func TestBreakerSink_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &countingSink{err: errors.New("broker down")}
	cfg := DefaultBreakerConfig("audit-test")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	sink := NewBreakerSink(inner, cfg, quietLogger())

	require.Error(t, sink.Record(context.Background(), sampleEvent()))
	require.Error(t, sink.Record(context.Background(), sampleEvent()))
	err := sink.Record(context.Background(), sampleEvent())

	assert.ErrorIs(t, err, ErrSinkUnavailable)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, "open", sink.State())
}

func TestFanout_DeliversToEverySink(t *testing.T) {
	broken := &countingSink{err: errors.New("down")}
	healthy := &countingSink{}
	fanout := Fanout{broken, nil, healthy, NewLogSink(quietLogger())}

	err := fanout.Record(context.Background(), sampleEvent())

	require.Error(t, err)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, healthy.calls)
}
