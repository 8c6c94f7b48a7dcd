package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Queue is the durable queue every domain event is routed to.
const Queue = "labdesk.events"

// AMQPPublisher writes events to Queue through the default exchange.
type AMQPPublisher struct {
	conn   *amqp.Connection
	mu     sync.Mutex
	ch     *amqp.Channel
	logger zerolog.Logger

	published atomic.Int64
	failed    atomic.Int64
}

// DialAMQP connects to the broker and declares Queue.
func DialAMQP(url string, logger zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(Queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", Queue, err)
	}
	logger.Info().Str("queue", Queue).Msg("connected to rabbitmq")
	return &AMQPPublisher{conn: conn, ch: ch, logger: logger}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.failed.Add(1)
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, "", Queue, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Type:         ev.Type,
		MessageId:    ev.EntityID.String(),
		Timestamp:    time.Now(),
		Body:         body,
	})
	p.mu.Unlock()
	if err != nil {
		p.failed.Add(1)
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	p.published.Add(1)
	p.logger.Debug().Str("event", ev.Type).Str("entity_id", ev.EntityID.String()).Msg("event published")
	return nil
}

// Ping reports an error when the broker connection has gone away.
func (p *AMQPPublisher) Ping(context.Context) error {
	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection closed")
	}
	return nil
}

// Stats returns the publish counters.
func (p *AMQPPublisher) Stats() (published, failed int64) {
	return p.published.Load(), p.failed.Load()
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("close rabbitmq channel")
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
