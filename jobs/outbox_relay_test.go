package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/travel_booking/database"
	"github.com/anjiri1684/travel_booking/logger"
	"github.com/anjiri1684/travel_booking/models"
	"github.com/anjiri1684/travel_booking/mq"
	"github.com/anjiri1684/travel_booking/notifications"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	key string
	job notifications.Job
}

type mockPublisher struct {
	mu      sync.Mutex
	failAt  int
	history []published
}

func (p *mockPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAt > 0 && len(p.history)+1 == p.failAt {
		return errors.New("connection closed")
	}
	p.history = append(p.history, published{key: key, job: v.(notifications.Job)})
	return nil
}

func seedJobs(t *testing.T, store *database.MemoryStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, store.CreateNotificationJob(context.Background(), &models.NotificationJob{
			BookingID: uuid.New(),
			Kind:      models.NotificationBookingConfirmed,
			Recipient: "guest@example.com",
		}))
	}
}

func TestOutboxRelay_PublishesQueuedJobs(t *testing.T) {
	store := database.NewMemoryStore()
	seedJobs(t, store, 3)
	pub := &mockPublisher{}

	relay := NewOutboxRelay(store, pub, 10, logger.Discard())
	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, pub.history, 3)
	for _, p := range pub.history {
		assert.Equal(t, notifications.RoutingKeyBookingConfirmed, p.key)
		assert.Equal(t, "guest@example.com", p.job.Recipient)
	}
	for _, j := range store.NotificationJobs() {
		assert.Equal(t, models.JobPublished, j.Status)
		assert.NotNil(t, j.PublishedAt)
	}

	// nothing left to publish
	n, err = relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, pub.history, 3)
}

func TestOutboxRelay_StopsOnBrokerError(t *testing.T) {
	store := database.NewMemoryStore()
	seedJobs(t, store, 3)
	pub := &mockPublisher{failAt: 2}

	relay := NewOutboxRelay(store, pub, 10, logger.Discard())
	n, err := relay.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)

	queued, err := store.ListQueuedNotificationJobs(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, queued, 2)
}

func TestOutboxRelay_RespectsBatch(t *testing.T) {
	store := database.NewMemoryStore()
	seedJobs(t, store, 5)
	pub := &mockPublisher{}

	n, err := NewOutboxRelay(store, pub, 2, logger.Discard()).Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

type nackingPublisher struct{}

func (nackingPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	return mq.ErrNotConfirmed
}

func TestOutboxRelay_UnconfirmedPublishStaysQueued(t *testing.T) {
	store := database.NewMemoryStore()
	seedJobs(t, store, 2)

	n, err := NewOutboxRelay(store, nackingPublisher{}, 10, logger.Discard()).Flush(context.Background())
	require.ErrorIs(t, err, mq.ErrNotConfirmed)
	assert.Equal(t, 0, n)

	queued, err := store.ListQueuedNotificationJobs(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, queued, 2)
}

type downMailer struct{}

func (downMailer) Send(ctx context.Context, msg notifications.Message) error {
	return errors.New("smtp unavailable")
}

func TestOutboxRelay_RepublishesJobInterruptedByShutdown(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()

	listing := models.Listing{OwnerID: uuid.New(), Name: "Lakeside Cabin", PricePerNight: decimal.NewFromInt(100)}
	require.NoError(t, store.CreateListing(ctx, &listing))
	booking := models.Booking{
		ListingID:  listing.ID,
		UserID:     uuid.New(),
		GuestEmail: "guest@example.com",
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
		TotalPrice: decimal.NewFromInt(200),
		Status:     models.BookingConfirmed,
	}
	require.NoError(t, store.CreateBooking(ctx, &booking))
	require.NoError(t, store.CreateNotificationJob(ctx, &models.NotificationJob{
		BookingID: booking.ID,
		Kind:      models.NotificationBookingConfirmed,
		Recipient: booking.GuestEmail,
	}))

	pub := &mockPublisher{}
	relay := NewOutboxRelay(store, pub, 10, logger.Discard())
	n, err := relay.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	d := notifications.NewDispatcher(store, downMailer{}, notifications.DispatcherConfig{
		MaxRetries: 3,
		Backoff:    time.Hour,
	}, logger.Discard())
	shutdown, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err = d.Handle(shutdown, pub.history[0].job)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	n, err = relay.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.history, 2)
	assert.Equal(t, pub.history[0].job, pub.history[1].job)
}

type reconcilerFunc func(ctx context.Context, olderThan time.Duration, limit int) (int, error)

func (f reconcilerFunc) ReconcilePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	return f(ctx, olderThan, limit)
}

func TestReconcileJob_PassesSettings(t *testing.T) {
	var gotAfter time.Duration
	var gotLimit int
	job := NewReconcileJob(reconcilerFunc(func(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
		gotAfter, gotLimit = olderThan, limit
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return 1, nil
	}), 15*time.Minute, 50, logger.Discard())

	job.Run()
	assert.Equal(t, 15*time.Minute, gotAfter)
	assert.Equal(t, 50, gotLimit)
}
