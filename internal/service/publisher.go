package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/mission-control/internal/queue"
)

// EventPublisher announces stored pings to downstream consumers.
type EventPublisher interface {
	PublishPingCreated(ctx context.Context, event q.PingCreatedEvent) error
}

// DefaultDialTimeout bounds the TCP connect and AMQP handshake of one publish.
const DefaultDialTimeout = 2 * time.Second

// AMQPPublisher publishes PingCreatedEvent to the ping.created queue on
// RabbitMQ.  Each publish opens its own connection; the dial honours ctx
// and DialTimeout, whichever ends first.  Errors are returned unlogged, the
// caller decides what a failure means.  Messages are marked persistent.
type AMQPPublisher struct {
	URL         string
	DialTimeout time.Duration
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, DialTimeout: DefaultDialTimeout}
}

func (p *AMQPPublisher) PublishPingCreated(ctx context.Context, event q.PingCreatedEvent) error {
	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      p.dialer(ctx),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts; declaring is idempotent.
	if _, err := ch.QueueDeclare(
		q.PingCreatedQueue, // name
		true,               // durable
		false,              // autoDelete
		false,              // exclusive
		false,              // noWait
		nil,                // args
	); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.PingCreatedQueue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// dialer connects under ctx and sets a deadline that covers the AMQP
// handshake; amqp091-go clears it once the connection is open.
func (p *AMQPPublisher) dialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	return func(network, addr string) (net.Conn, error) {
		deadline := time.Now().Add(timeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		d := net.Dialer{Deadline: deadline}
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}
