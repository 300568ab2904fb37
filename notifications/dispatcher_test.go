package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/travel_booking/database"
	"github.com/anjiri1684/travel_booking/logger"
	"github.com/anjiri1684/travel_booking/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock mailer for testing
type mockMailer struct {
	mu       sync.Mutex
	sendFunc func(call int, msg Message) error
	sent     []Message
}

func (m *mockMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	call := len(m.sent)
	m.mu.Unlock()
	if m.sendFunc != nil {
		return m.sendFunc(call, msg)
	}
	return nil
}

func (m *mockMailer) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type dispatchFixture struct {
	store  *database.MemoryStore
	mailer *mockMailer
	d      *Dispatcher
	sleeps []time.Duration
	job    Job
}

func newDispatchFixture(t *testing.T, maxRetries int) *dispatchFixture {
	t.Helper()
	ctx := context.Background()
	store := database.NewMemoryStore()

	listing := models.Listing{Name: "Lakeside Cabin", PricePerNight: decimal.NewFromInt(100), OwnerID: uuid.New()}
	require.NoError(t, store.CreateListing(ctx, &listing))

	booking := models.Booking{
		ListingID:  listing.ID,
		UserID:     uuid.New(),
		GuestEmail: "guest@example.com",
		GuestName:  "Abebe Kebede",
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
		TotalPrice: decimal.NewFromInt(200),
		Status:     models.BookingConfirmed,
	}
	require.NoError(t, store.CreateBooking(ctx, &booking))

	record := models.NotificationJob{
		BookingID: booking.ID,
		Kind:      models.NotificationBookingConfirmed,
		Recipient: booking.GuestEmail,
		Status:    models.JobPublished,
	}
	require.NoError(t, store.CreateNotificationJob(ctx, &record))

	f := &dispatchFixture{
		store:  store,
		mailer: &mockMailer{},
		job:    Job{JobID: record.ID, BookingID: booking.ID, Recipient: booking.GuestEmail},
	}
	f.d = NewDispatcher(store, f.mailer, DispatcherConfig{
		MaxRetries: maxRetries,
		Backoff:    time.Minute,
		From:       "no-reply@travel.example",
	}, logger.Discard())
	f.d.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return nil
	}
	return f
}

func (f *dispatchFixture) record(t *testing.T) *models.NotificationJob {
	t.Helper()
	j, err := f.store.GetNotificationJob(context.Background(), f.job.JobID)
	require.NoError(t, err)
	return j
}

func TestDispatcher_SendsConfirmation(t *testing.T) {
	f := newDispatchFixture(t, 3)

	require.NoError(t, f.d.Handle(context.Background(), f.job))

	require.Equal(t, 1, f.mailer.calls())
	msg := f.mailer.sent[0]
	assert.Equal(t, []string{"guest@example.com"}, msg.To)
	assert.Equal(t, "no-reply@travel.example", msg.From)
	assert.Equal(t, "Booking Confirmation for Lakeside Cabin", msg.Subject)
	assert.Contains(t, msg.Body, "Dear Abebe Kebede")
	assert.Contains(t, msg.Body, f.job.BookingID.String())
	assert.Contains(t, msg.Body, "from 2025-01-01 to 2025-01-03")
	assert.Contains(t, msg.Body, "Total Price Paid: 200.00")

	rec := f.record(t)
	assert.Equal(t, models.JobSent, rec.Status)
	assert.Equal(t, 1, rec.Attempts)
	assert.Empty(t, f.sleeps)
}

func TestDispatcher_SkipsAlreadySent(t *testing.T) {
	f := newDispatchFixture(t, 3)
	require.NoError(t, f.d.Handle(context.Background(), f.job))
	require.NoError(t, f.d.Handle(context.Background(), f.job))

	assert.Equal(t, 1, f.mailer.calls())
}

func TestDispatcher_RetriesWithFixedBackoff(t *testing.T) {
	f := newDispatchFixture(t, 3)
	f.mailer.sendFunc = func(call int, msg Message) error {
		if call < 3 {
			return errors.New("smtp unavailable")
		}
		return nil
	}

	require.NoError(t, f.d.Handle(context.Background(), f.job))

	assert.Equal(t, 3, f.mailer.calls())
	assert.Equal(t, []time.Duration{time.Minute, time.Minute}, f.sleeps)
	rec := f.record(t)
	assert.Equal(t, models.JobSent, rec.Status)
	assert.Equal(t, 3, rec.Attempts)
}

func TestDispatcher_GivesUpAfterMaxRetries(t *testing.T) {
	f := newDispatchFixture(t, 3)
	f.mailer.sendFunc = func(call int, msg Message) error {
		return errors.New("smtp unavailable")
	}

	err := f.d.Handle(context.Background(), f.job)
	require.Error(t, err)

	assert.Equal(t, 4, f.mailer.calls())
	assert.Len(t, f.sleeps, 3)
	rec := f.record(t)
	assert.Equal(t, models.JobFailed, rec.Status)
	require.NotNil(t, rec.LastError)
	assert.Contains(t, *rec.LastError, "smtp unavailable")
}

func TestDispatcher_PermanentErrorIsNotRetried(t *testing.T) {
	f := newDispatchFixture(t, 3)
	f.mailer.sendFunc = func(call int, msg Message) error {
		return ErrPermanent
	}

	err := f.d.Handle(context.Background(), f.job)
	assert.ErrorIs(t, err, ErrPermanent)
	assert.Equal(t, 1, f.mailer.calls())
	assert.Equal(t, models.JobFailed, f.record(t).Status)
}

func TestDispatcher_MissingBookingIsDropped(t *testing.T) {
	f := newDispatchFixture(t, 3)
	f.job.BookingID = uuid.New()

	require.NoError(t, f.d.Handle(context.Background(), f.job))

	assert.Equal(t, 0, f.mailer.calls())
	assert.Empty(t, f.sleeps)
	assert.Equal(t, models.JobDropped, f.record(t).Status)
}

func TestDispatcher_CanceledContextStopsRetrying(t *testing.T) {
	f := newDispatchFixture(t, 3)
	f.mailer.sendFunc = func(call int, msg Message) error {
		return errors.New("smtp unavailable")
	}
	f.d.sleep = sleepCtx

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.d.Handle(ctx, f.job)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrRedeliver)
	assert.Equal(t, 1, f.mailer.calls())

	rec := f.record(t)
	assert.Equal(t, models.JobQueued, rec.Status)
	assert.Equal(t, 1, rec.Attempts)
	require.NotNil(t, rec.LastError)
	assert.Contains(t, *rec.LastError, "smtp unavailable")
}

// flakyStore fails the chosen calls and delegates the rest.
type flakyStore struct {
	database.Store
	getBookingErr error
	getJobErr     error
	saveJobErr    error
}

func (s *flakyStore) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	if s.getBookingErr != nil {
		return nil, s.getBookingErr
	}
	return s.Store.GetBooking(ctx, id)
}

func (s *flakyStore) GetNotificationJob(ctx context.Context, id uuid.UUID) (*models.NotificationJob, error) {
	if s.getJobErr != nil {
		return nil, s.getJobErr
	}
	return s.Store.GetNotificationJob(ctx, id)
}

func (s *flakyStore) SaveNotificationJob(ctx context.Context, j *models.NotificationJob) error {
	if s.saveJobErr != nil {
		return s.saveJobErr
	}
	return s.Store.SaveNotificationJob(ctx, j)
}

func TestDispatcher_StoreErrorsDoNotLoseTheJob(t *testing.T) {
	down := errors.New("connection refused")
	tests := []struct {
		name          string
		store         flakyStore
		wantRedeliver bool
		wantStatus    string
	}{
		{"booking lookup fails", flakyStore{getBookingErr: down}, false, models.JobQueued},
		{"booking lookup and release fail", flakyStore{getBookingErr: down, saveJobErr: down}, true, models.JobPublished},
		{"job lookup fails", flakyStore{getJobErr: down}, true, models.JobPublished},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatchFixture(t, 3)
			store := tt.store
			store.Store = f.store
			f.d.store = &store

			err := f.d.Handle(context.Background(), f.job)
			require.ErrorIs(t, err, down)
			assert.Equal(t, tt.wantRedeliver, errors.Is(err, ErrRedeliver))
			assert.Equal(t, 0, f.mailer.calls())
			assert.Equal(t, tt.wantStatus, f.record(t).Status)
		})
	}
}
