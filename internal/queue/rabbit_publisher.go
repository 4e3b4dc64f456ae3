package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 3 * time.Second

// ErrNotConfirmed means the broker nacked a publish.
var ErrNotConfirmed = errors.New("queue: publish not confirmed by broker")

// RabbitPublisher publishes EmailRequested events to a topic exchange on a
// channel in confirm mode. PublishEmail returns only after the broker has
// taken responsibility for the message.
type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	now      func() time.Time
}

func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbit: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	fail := func(step string, err error) (*RabbitPublisher, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}
	if err := ch.Confirm(false); err != nil {
		return fail("confirm mode", err)
	}
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange, now: time.Now}, nil
}

func (p *RabbitPublisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *RabbitPublisher) PublishEmail(ctx context.Context, ev EmailRequested, reqID string) error {
	key, msg, err := emailPublishing(ev, reqID, p.now())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	dc, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, key, false, false, msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	ok, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("confirm %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrNotConfirmed)
	}
	return nil
}

// emailPublishing builds the routing key and AMQP message for ev.
func emailPublishing(ev EmailRequested, reqID string, now time.Time) (string, amqp.Publishing, error) {
	if ev.Kind == "" || ev.To == "" {
		return "", amqp.Publishing{}, errors.New("queue: email event needs kind and recipient")
	}
	if ev.RequestedAt.IsZero() {
		ev.RequestedAt = now.UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return "", amqp.Publishing{}, fmt.Errorf("encode email event: %w", err)
	}
	headers := amqp.Table{"kind": ev.Kind}
	if reqID != "" {
		headers["X-Request-ID"] = reqID
	}
	return EmailRoutingKey(ev.Kind), amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         "EmailRequested",
		MessageId:    uuid.NewString(),
		Timestamp:    now,
		Headers:      headers,
		Body:         body,
	}, nil
}
