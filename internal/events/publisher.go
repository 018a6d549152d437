package events

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var ErrPublisherClosed = errors.New("publisher_closed")

const defaultDialTimeout = 2 * time.Second

// Publisher emits domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

// RabbitPublisher publishes JSON messages to a durable topic exchange.
// The connection is opened lazily and re-opened after the broker drops it.
// Dialling happens outside mu and is bounded by the caller's context and
// dialTimeout, whichever ends first.
type RabbitPublisher struct {
	url         string
	exchange    string
	dialTimeout time.Duration
	log         *zap.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

func NewRabbitPublisher(url, exchange string, dialTimeout time.Duration, log *zap.Logger) *RabbitPublisher {
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	return &RabbitPublisher{
		url:         url,
		exchange:    exchange,
		dialTimeout: dialTimeout,
		log:         log.Named("events.rabbitmq"),
	}
}

func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.mu.Lock()
		if p.ch == ch {
			p.reset()
		}
		p.mu.Unlock()
		return err
	}
	return nil
}

// channel returns the live channel, dialling a new connection when needed.
func (p *RabbitPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPublisherClosed
	}
	if p.ch != nil && !p.ch.IsClosed() {
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	}
	p.mu.Unlock()

	conn, ch, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = ch.Close()
		_ = conn.Close()
		return nil, ErrPublisherClosed
	}
	if p.ch != nil && !p.ch.IsClosed() {
		// A concurrent publisher connected first.
		_ = ch.Close()
		_ = conn.Close()
		return p.ch, nil
	}
	p.reset()
	p.conn = conn
	p.ch = ch
	p.log.Info("connected to broker", zap.String("exchange", p.exchange))
	return ch, nil
}

func (p *RabbitPublisher) dial(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      p.dialer(ctx),
	})
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// dialer bounds the TCP connect and the AMQP handshake by the earlier of
// ctx's deadline and dialTimeout. amqp clears the deadline once the
// handshake completes.
func (p *RabbitPublisher) dialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		deadline := time.Now().Add(p.dialTimeout)
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

func (p *RabbitPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.reset()
	return nil
}
