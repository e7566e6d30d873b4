package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel abstracts *amqp.Channel for testability.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// rabbitDialer opens a connection and a channel on which the queue is declared.
type rabbitDialer func() (amqpChannel, io.Closer, error)

// RabbitPublisher sends events to a durable queue through the default
// exchange. A channel or connection closed by the broker is re-dialled on
// the next Publish.
type RabbitPublisher struct {
	mu    sync.Mutex
	dial  rabbitDialer
	conn  io.Closer
	ch    amqpChannel
	queue string
}

// NewRabbitPublisher dials url and declares queue as durable.
func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	p := &RabbitPublisher{
		queue: queue,
		dial:  func() (amqpChannel, io.Closer, error) { return dialRabbit(url, queue) },
	}
	ch, conn, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.ch, p.conn = ch, conn
	return p, nil
}

// NewRabbitPublisherWith is only for tests to inject a fake channel.
func NewRabbitPublisherWith(ch amqpChannel, queue string) *RabbitPublisher {
	return &RabbitPublisher{ch: ch, queue: queue}
}

func dialRabbit(url, queue string) (amqpChannel, io.Closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare %s queue: %w", queue, err)
	}
	return ch, conn, nil
}

// channel returns an open channel, dialling again when the broker closed
// the previous one. Callers hold p.mu.
func (p *RabbitPublisher) channel() (amqpChannel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.dial == nil {
		return nil, amqp.ErrClosed
	}
	p.closeLocked()
	ch, conn, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.ch, p.conn = ch, conn
	return ch, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID,
			Type:         e.Type,
			Timestamp:    e.CreatedAt,
			Body:         body,
		},
	)
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *RabbitPublisher) closeLocked() error {
	var err error
	if p.ch != nil {
		err = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
		p.conn = nil
	}
	return err
}
