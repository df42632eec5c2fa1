// Package queue delivers outbound contract messages to RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kirinyoku/seat-market/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultQueue = "contracts.messages"

type Config struct {
	URL   string
	Queue string
}

// Envelope is the body of every published message.
type Envelope struct {
	ID       string          `json:"id"`
	Contract domain.Addr     `json:"contract"`
	Height   uint64          `json:"height"`
	Kind     string          `json:"kind"`
	Msg      json.RawMessage `json:"msg"`
}

// Publisher publishes to a durable queue over one channel. It redials
// lazily after the connection drops.
type Publisher struct {
	cfg Config

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(cfg Config) *Publisher {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	return &Publisher{cfg: cfg}
}

// Connect dials the broker and declares the queue.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.connect()
}

func (p *Publisher) connect() error {
	const op = "queue.Publisher.connect"

	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.closeLocked()

	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("%s: dial: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%s: channel open: %w", op, err)
	}

	if _, err := ch.QueueDeclare(
		p.cfg.Queue, // name
		true,        // durable
		false,       // autoDelete
		false,       // exclusive
		false,       // noWait
		nil,         // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("%s: queue declare: %w", op, err)
	}

	p.conn = conn
	p.ch = ch

	return nil
}

// Publish sends one outbox message as a persistent JSON delivery.
func (p *Publisher) Publish(ctx context.Context, m domain.OutboxMessage) error {
	const op = "queue.Publisher.Publish"

	body, err := json.Marshal(Envelope{
		ID:       m.ID.String(),
		Contract: m.Contract,
		Height:   m.Height,
		Kind:     m.Kind,
		Msg:      m.Payload,
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    m.ID.String(),
		Type:         m.Kind,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx,
		"",          // default exchange
		p.cfg.Queue, // routing key = queue name
		false,       // mandatory
		false,       // immediate
		pub,
	); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
