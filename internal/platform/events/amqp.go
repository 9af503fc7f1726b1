package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue receives booking.created events when no queue is configured.
const DefaultQueue = "medmeet.booking.created"

// Channel is the subset of *amqp.Channel used by AMQPPublisher.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher writes events to a durable queue as persistent messages and
// waits for the broker's publisher confirm. Confirms are matched to messages
// by delivery tag, so a publish that gave up waiting never consumes the
// confirm of a later one.
type AMQPPublisher struct {
	ch    Channel
	queue string

	// mu orders publishes so tags are assigned in the order the channel sees them.
	mu  sync.Mutex
	tag uint64

	waitMu  sync.Mutex
	waiters map[uint64]chan bool
	closed  bool
}

// confirmBuffer sizes the channel handed to NotifyPublish. It is drained
// continuously by dispatch.
const confirmBuffer = 64

// NewAMQPPublisher declares queue as durable and enables confirms on ch.
func NewAMQPPublisher(ch Channel, queue string) (*AMQPPublisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	p := &AMQPPublisher{
		ch:      ch,
		queue:   queue,
		waiters: make(map[uint64]chan bool),
	}
	go p.dispatch(ch.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer)))
	return p, nil
}

// dispatch hands each confirm to the publish waiting on its tag. Confirms
// nobody waits for any more are dropped. When the channel closes, pending
// waiters are released with no result.
func (p *AMQPPublisher) dispatch(confirms <-chan amqp.Confirmation) {
	for c := range confirms {
		p.waitMu.Lock()
		w, ok := p.waiters[c.DeliveryTag]
		delete(p.waiters, c.DeliveryTag)
		p.waitMu.Unlock()
		if ok {
			w <- c.Ack
		}
	}

	p.waitMu.Lock()
	p.closed = true
	for tag, w := range p.waiters {
		close(w)
		delete(p.waiters, tag)
	}
	p.waitMu.Unlock()
}

// Dial opens a connection and channel to url and returns a publisher on it.
// Closing the publisher closes both.
func Dial(url, queue string) (*AMQPPublisher, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open amqp channel: %w", err)
	}
	pub, err := NewAMQPPublisher(ch, queue)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return pub, func() error {
		_ = ch.Close()
		return conn.Close()
	}, nil
}

func (p *AMQPPublisher) PublishBookingCreated(ctx context.Context, evt BookingCreated) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal booking.created: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Type:         "booking.created",
		MessageId:    evt.EventID,
		Timestamp:    evt.OccurredAt,
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}

	tag, wait, err := p.send(ctx, msg)
	if err != nil {
		return err
	}

	select {
	case ack, ok := <-wait:
		if !ok {
			return fmt.Errorf("publish to %s: channel closed before confirm", p.queue)
		}
		if !ack {
			return fmt.Errorf("publish to %s: broker nacked message", p.queue)
		}
		return nil
	case <-ctx.Done():
		p.waitMu.Lock()
		delete(p.waiters, tag)
		p.waitMu.Unlock()
		return fmt.Errorf("publish to %s: %w", p.queue, ctx.Err())
	}
}

// send publishes msg and registers a waiter for its delivery tag. The channel
// numbers confirms from 1 and does not consume a tag when a publish fails.
func (p *AMQPPublisher) send(ctx context.Context, msg amqp.Publishing) (uint64, <-chan bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	wait := make(chan bool, 1)
	tag := p.tag + 1

	p.waitMu.Lock()
	if p.closed {
		p.waitMu.Unlock()
		return 0, nil, fmt.Errorf("publish to %s: channel closed", p.queue)
	}
	p.waiters[tag] = wait
	p.waitMu.Unlock()

	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.waitMu.Lock()
		delete(p.waiters, tag)
		p.waitMu.Unlock()
		return 0, nil, fmt.Errorf("publish to %s: %w", p.queue, err)
	}
	p.tag = tag
	return tag, wait, nil
}
