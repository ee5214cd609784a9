package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

const publishTimeout = 5 * time.Second

// Publisher is the part of an amqp.Channel the sink uses.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

var _ ports.AuditSink = (*RabbitSink)(nil)

// RabbitSink publishes audit events to a topic exchange, routed by action, and waits
// for the broker to confirm each one.
type RabbitSink struct {
	mu       sync.Mutex
	channel  Publisher
	confirms <-chan amqp.Confirmation
	exchange string
	source   string
	conn     *amqp.Connection
}

// DialRabbit connects, puts a channel in confirm mode and declares the durable exchange.
func DialRabbit(url, exchange, source string) (*RabbitSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	sink := NewRabbitSink(ch, confirms, exchange, source)
	sink.conn = conn
	return sink, nil
}

// NewRabbitSink uses an already configured channel. confirms may be nil when the
// channel is not in confirm mode.
func NewRabbitSink(channel Publisher, confirms <-chan amqp.Confirmation, exchange, source string) *RabbitSink {
	return &RabbitSink{channel: channel, confirms: confirms, exchange: exchange, source: source}
}

func (s *RabbitSink) Record(ctx context.Context, event ports.AuditEvent) error {
	body, err := NewEnvelope(s.source, event).Marshal()
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	// confirms arrive in publish order, so one publish is in flight at a time.
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.channel.Publish(s.exchange, event.Action, false, false, amqp.Publishing{
		ContentType:   contentTypeJSON,
		DeliveryMode:  amqp.Persistent,
		MessageId:     event.ID,
		CorrelationId: event.CorrelationID,
		Type:          eventTypePrefix + event.Action,
		Timestamp:     event.OccurredAt,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish audit event %s: %w", event.ID, err)
	}
	if s.confirms == nil {
		return nil
	}

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case confirm, ok := <-s.confirms:
		if !ok {
			return errors.New("rabbitmq channel closed before confirm")
		}
		if !confirm.Ack {
			return fmt.Errorf("audit event %s was not confirmed", event.ID)
		}
		return nil
	case <-timer.C:
		return errors.New("publish confirmation timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RabbitSink) Close() error {
	if s.conn == nil || s.conn.IsClosed() {
		return nil
	}
	return s.conn.Close()
}
