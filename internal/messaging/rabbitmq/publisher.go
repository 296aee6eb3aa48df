// Package rabbitmq publishes order lifecycle events to a RabbitMQ topic
// exchange.
package rabbitmq

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xenking/hungrypanda/internal/domain/order"
	"github.com/xenking/hungrypanda/internal/domain/pricing"
)

// Exchange is the durable topic exchange order events are published to.
// Routing keys are the order.EventType values.
const Exchange = "orders_topic"

const publishTimeout = 5 * time.Second

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// OpenFunc opens a fresh channel after the broker closed the current one.
type OpenFunc func() (Channel, error)

var errPublisherClosed = errors.New("rabbitmq publisher closed")

var _ order.Publisher = (*Publisher)(nil)

// Publisher implements order.Publisher.
type Publisher struct {
	conn *amqp.Connection
	open OpenFunc

	mu     sync.Mutex
	ch     Channel
	closed bool
}

// Dial connects to url, opens a channel and declares the exchange.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	open := func() (Channel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, errors.Wrap(err, "open channel")
		}
		return ch, nil
	}
	ch, err := open()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p, err := NewPublisher(ch, open)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares the exchange on ch and returns a Publisher using it.
// A non-nil open is used to replace ch once the broker closes it.
func NewPublisher(ch Channel, open OpenFunc) (*Publisher, error) {
	if err := declare(ch); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch, open: open}, nil
}

func declare(ch Channel) error {
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "declare %s exchange", Exchange)
	}
	return nil
}

// channel returns an open channel, reopening it if the broker closed it.
// The caller holds p.mu.
func (p *Publisher) channel() (Channel, error) {
	switch {
	case p.closed:
		return nil, errPublisherClosed
	case !p.ch.IsClosed():
		return p.ch, nil
	case p.open == nil:
		return nil, errors.New("rabbitmq channel closed")
	}
	ch, err := p.open()
	if err != nil {
		return nil, errors.Wrap(err, "reopen channel")
	}
	if err := declare(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

// Publish sends ev as a persistent JSON message routed by its type. A
// publish that fails on a closed channel is retried once on a new channel.
func (p *Publisher) Publish(ctx context.Context, ev order.Event) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Type),
		MessageId:    ev.Order.ID + ":" + string(ev.Type) + ":" + ev.Order.Status.String(),
		Body:         EncodeEvent(ev),
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	for attempt := 0; ; attempt++ {
		ch, err := p.channel()
		if err != nil {
			return errors.Wrapf(err, "publish %s", ev.Type)
		}
		err = ch.PublishWithContext(ctx, Exchange, string(ev.Type), false, false, msg)
		if err == nil {
			return nil
		}
		if attempt > 0 || !errors.Is(err, amqp.ErrClosed) {
			return errors.Wrapf(err, "publish %s", ev.Type)
		}
	}
}

// Healthy reports whether the connection is open and a channel can be used,
// reopening a channel the broker closed.
func (p *Publisher) Healthy(context.Context) error {
	if p.conn != nil && p.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.channel()
	return err
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// EncodeEvent renders ev as the message body.
func EncodeEvent(ev order.Event) []byte {
	o := ev.Order
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("type", func(e *jx.Encoder) { e.Str(string(ev.Type)) })
		e.Field("orderId", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("userId", func(e *jx.Encoder) { e.Str(o.UserID) })
		e.Field("status", func(e *jx.Encoder) { e.Str(o.Status.String()) })
		if ev.Previous.Valid() {
			e.Field("previousStatus", func(e *jx.Encoder) { e.Str(ev.Previous.String()) })
		}
		e.Field("totalAmount", func(e *jx.Encoder) { e.Num(jx.Num(pricing.String(o.TotalAmount))) })
		e.Field("deliveryAddress", func(e *jx.Encoder) { e.Str(o.DeliveryAddress) })
		e.Field("paymentMethod", func(e *jx.Encoder) { e.Str(string(o.PaymentMethod)) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("menuItemId", func(e *jx.Encoder) { e.Str(it.MenuItemID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("price", func(e *jx.Encoder) { e.Num(jx.Num(pricing.String(it.Price))) })
					})
				}
			})
		})
		e.Field("occurredAt", func(e *jx.Encoder) { e.Str(ev.OccurredAt.UTC().Format(time.RFC3339)) })
	})
	return e.Bytes()
}
