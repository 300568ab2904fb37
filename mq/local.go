package mq

import (
	"context"
	"encoding/json"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Local is an in-process stand-in for the broker, used when no RabbitMQ URL
// is configured. Messages are lost on restart; the outbox rows are not.
type Local struct {
	ch  chan amqp.Delivery
	tag atomic.Uint64
}

func NewLocal(buffer int) *Local {
	return &Local{ch: make(chan amqp.Delivery, buffer)}
}

func (l *Local) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	d := amqp.Delivery{
		Acknowledger: noopAcknowledger{},
		DeliveryTag:  l.tag.Add(1),
		RoutingKey:   key,
		ContentType:  "application/json",
		Body:         b,
	}
	select {
	case l.ch <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Local) Deliveries() <-chan amqp.Delivery {
	return l.ch
}

type noopAcknowledger struct{}

func (noopAcknowledger) Ack(tag uint64, multiple bool) error           { return nil }
func (noopAcknowledger) Nack(tag uint64, multiple, requeue bool) error { return nil }
func (noopAcknowledger) Reject(tag uint64, requeue bool) error         { return nil }
