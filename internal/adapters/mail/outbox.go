package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"e2e-transit/internal/pkg/logger"
)

// Sender delivers a message. Both SMTPMailer and OutboxPublisher satisfy it.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// OutboxMessage is the JSON body published to the mail queue
type OutboxMessage struct {
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	QueuedAt time.Time `json:"queued_at"`
}

func (m *OutboxMessage) validate() error {
	if m.To == "" || m.Subject == "" {
		return errors.New("outbox message missing recipient or subject")
	}
	return nil
}

// OutboxPublisher queues mail on RabbitMQ instead of sending it inline. It
// keeps one connection and channel open and redials after a failure.
type OutboxPublisher struct {
	url   string
	queue string
	now   func() time.Time
	dial  func(url string) (*amqp.Connection, error)

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewOutboxPublisher creates a publisher for the given broker and queue.
// The connection is opened on the first Send.
func NewOutboxPublisher(url, queue string) *OutboxPublisher {
	return &OutboxPublisher{url: url, queue: queue, now: time.Now, dial: amqp.Dial}
}

// Send publishes the message as a persistent delivery
func (p *OutboxPublisher) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(OutboxMessage{
		To:       to,
		Subject:  subject,
		Body:     body,
		QueuedAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal outbox message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         payload,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// channel returns the open channel, dialing and declaring the queue when the
// previous connection is gone. Callers hold p.mu.
func (p *OutboxPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := p.dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}

	p.conn, p.ch = conn, ch
	logger.Infof("mail-outbox: publisher connected [%s]", p.queue)
	return ch, nil
}

// reset drops the cached connection. Callers hold p.mu.
func (p *OutboxPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the broker connection
func (p *OutboxPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// OutboxConsumer drains the mail queue and delivers each message
type OutboxConsumer struct {
	url      string
	queue    string
	delivery Sender
	timeout  time.Duration
}

// NewOutboxConsumer creates a consumer that hands messages to delivery
func NewOutboxConsumer(url, queue string, delivery Sender) *OutboxConsumer {
	return &OutboxConsumer{url: url, queue: queue, delivery: delivery, timeout: 30 * time.Second}
}

// Run consumes until ctx is cancelled, reconnecting with backoff
func (c *OutboxConsumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			logger.Warnf("mail-outbox: dial failed: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Warnf("mail-outbox: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *OutboxConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		logger.Warnf("mail-outbox: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	logger.Infof("mail-outbox: consuming %s", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				logger.WithError(err).Error("mail-outbox: delivery failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handle decodes one queued message and delivers it
func (c *OutboxConsumer) handle(ctx context.Context, body []byte) error {
	var msg OutboxMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := msg.validate(); err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.delivery.Send(sendCtx, msg.To, msg.Subject, msg.Body)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
