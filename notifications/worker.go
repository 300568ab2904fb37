package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Handler processes one decoded job. *Dispatcher satisfies it.
type Handler interface {
	Handle(ctx context.Context, job Job) error
}

// Worker runs a fixed pool of goroutines over one delivery channel.
type Worker struct {
	handler Handler
	size    int
	log     *logrus.Logger
}

func NewWorker(handler Handler, size int, log *logrus.Logger) *Worker {
	if size < 1 {
		size = 1
	}
	return &Worker{handler: handler, size: size, log: log}
}

// Run blocks until ctx is done or deliveries is closed.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	var wg sync.WaitGroup
	for i := 0; i < w.size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id, deliveries)
		}(i)
	}
	wg.Wait()
	w.log.Info("🛑 Notification workers stopped")
}

func (w *Worker) loop(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.process(ctx, id, d)
		}
	}
}

func (w *Worker) process(ctx context.Context, id int, d amqp.Delivery) {
	log := w.log.WithFields(logrus.Fields{"worker": id, "routing_key": d.RoutingKey})

	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil || job.BookingID == uuid.Nil {
		log.WithField("body", string(d.Body)).Error("Malformed notification message, rejecting")
		_ = d.Nack(false, false)
		return
	}

	err := w.handler.Handle(ctx, job)
	if errors.Is(err, ErrRedeliver) {
		log.WithError(err).WithField("booking_id", job.BookingID).Warn("Notification job requeued on the broker")
		_ = d.Nack(false, true)
		return
	}
	if err != nil {
		log.WithError(err).WithField("booking_id", job.BookingID).Error("Notification job finished with error")
	}
	// Retries happen inside the handler; redelivery would only duplicate them.
	_ = d.Ack(false)
}
