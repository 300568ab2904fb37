package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/anjiri1684/travel_booking/logger"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcknowledger struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type handlerFunc func(ctx context.Context, job Job) error

func (f handlerFunc) Handle(ctx context.Context, job Job) error { return f(ctx, job) }

func TestWorker_AcksHandledAndRejectsMalformed(t *testing.T) {
	ack := &fakeAcknowledger{}

	var mu sync.Mutex
	var handled []Job
	h := handlerFunc(func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, job)
		if len(handled) == 2 {
			return errors.New("retries exhausted")
		}
		return nil
	})

	good := func(tag uint64) amqp.Delivery {
		body, err := json.Marshal(Job{JobID: uuid.New(), BookingID: uuid.New(), Recipient: "guest@example.com"})
		require.NoError(t, err)
		return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: body, RoutingKey: RoutingKeyBookingConfirmed}
	}

	deliveries := make(chan amqp.Delivery, 4)
	deliveries <- good(1)
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("not json")}
	deliveries <- good(3)
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 4, Body: []byte(`{"job_id":"` + uuid.NewString() + `"}`)}
	close(deliveries)

	NewWorker(h, 3, logger.Discard()).Run(context.Background(), deliveries)

	assert.Len(t, handled, 2)
	assert.ElementsMatch(t, []uint64{1, 3}, ack.acked)
	assert.ElementsMatch(t, []uint64{2, 4}, ack.nacked)
	assert.Equal(t, []bool{false, false}, ack.requeue)
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	deliveries := make(chan amqp.Delivery)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewWorker(handlerFunc(func(ctx context.Context, job Job) error { return nil }), 2, logger.Discard()).Run(ctx, deliveries)
		close(done)
	}()

	cancel()
	<-done
}

func TestWorker_RequeuesUnreleasedJobs(t *testing.T) {
	ack := &fakeAcknowledger{}
	h := handlerFunc(func(ctx context.Context, job Job) error {
		return fmt.Errorf("%w: database is down", ErrRedeliver)
	})

	body, err := json.Marshal(Job{JobID: uuid.New(), BookingID: uuid.New()})
	require.NoError(t, err)
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, Body: body}
	close(deliveries)

	NewWorker(h, 1, logger.Discard()).Run(context.Background(), deliveries)

	assert.Empty(t, ack.acked)
	assert.Equal(t, []uint64{7}, ack.nacked)
	assert.Equal(t, []bool{true}, ack.requeue)
}
