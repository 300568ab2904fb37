package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anjiri1684/travel_booking/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedBooking(t *testing.T, s *MemoryStore) (models.Booking, models.Payment) {
	t.Helper()
	ctx := context.Background()

	listing := models.Listing{OwnerID: uuid.New(), Name: "Cabin", Location: "Hawassa", PricePerNight: decimal.NewFromInt(100)}
	require.NoError(t, s.CreateListing(ctx, &listing))

	booking := models.Booking{
		ID:         uuid.New(),
		ListingID:  listing.ID,
		UserID:     uuid.New(),
		GuestEmail: "guest@example.com",
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
		TotalPrice: decimal.NewFromInt(200),
		Status:     models.BookingPending,
	}
	require.NoError(t, s.CreateBooking(ctx, &booking))

	payment := models.Payment{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		Amount:    booking.TotalPrice,
		Currency:  "ETB",
		TxRef:     "TRAVEL-" + booking.ID.String(),
		Status:    models.PaymentPending,
	}
	require.NoError(t, s.CreatePayment(ctx, &payment))
	return booking, payment
}

func TestMemoryStore_TransactionRollsBack(t *testing.T) {
	s := NewMemoryStore()
	booking, payment := seedBooking(t, s)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx Store) error {
		p, err := tx.LockPaymentByTxRef(ctx, payment.TxRef)
		require.NoError(t, err)
		p.Status = models.PaymentCompleted
		require.NoError(t, tx.SavePayment(ctx, p))

		b, err := tx.GetBooking(ctx, booking.ID)
		require.NoError(t, err)
		b.Status = models.BookingConfirmed
		require.NoError(t, tx.SaveBooking(ctx, b))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := s.GetPaymentByTxRef(ctx, payment.TxRef)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status)
	b, err := s.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)
}

func TestMemoryStore_TransactionCommits(t *testing.T) {
	s := NewMemoryStore()
	_, payment := seedBooking(t, s)
	ctx := context.Background()

	err := s.Transaction(ctx, func(tx Store) error {
		p, err := tx.LockPaymentByTxRef(ctx, payment.TxRef)
		if err != nil {
			return err
		}
		p.Status = models.PaymentFailed
		return tx.SavePayment(ctx, p)
	})
	require.NoError(t, err)

	p, err := s.GetPaymentByTxRef(ctx, payment.TxRef)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, p.Status)
}

func TestMemoryStore_DuplicateTxRef(t *testing.T) {
	s := NewMemoryStore()
	_, payment := seedBooking(t, s)

	dup := payment
	dup.ID = uuid.Nil
	err := s.CreatePayment(context.Background(), &dup)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestMemoryStore_NotificationJobIsUniquePerBookingAndKind(t *testing.T) {
	s := NewMemoryStore()
	booking, _ := seedBooking(t, s)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, s.CreateNotificationJob(ctx, &models.NotificationJob{
			BookingID: booking.ID,
			Kind:      models.NotificationBookingConfirmed,
			Recipient: booking.GuestEmail,
		}))
	}

	jobs := s.NotificationJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobQueued, jobs[0].Status)
}

func TestMemoryStore_NotFound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetBooking(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = s.GetPaymentByTxRef(ctx, "TRAVEL-missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, s.DeleteListing(ctx, uuid.New()), gorm.ErrRecordNotFound)
}

func TestMemoryStore_ListPendingPaymentsBefore(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	_, old := seedBooking(t, s)

	s.now = func() time.Time { return base.Add(time.Hour) }
	seedBooking(t, s)

	stale, err := s.ListPendingPaymentsBefore(context.Background(), base.Add(30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.TxRef, stale[0].TxRef)
}

func TestMemoryStore_ClearBookings(t *testing.T) {
	s := NewMemoryStore()
	booking, _ := seedBooking(t, s)
	ctx := context.Background()
	require.NoError(t, s.CreateNotificationJob(ctx, &models.NotificationJob{BookingID: booking.ID, Kind: models.NotificationBookingConfirmed, Recipient: "guest@example.com"}))

	n, err := s.ClearBookings(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Empty(t, s.NotificationJobs())

	listings, err := s.ListListings(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, listings, 1)
}

func TestMemoryStore_DeleteListingRefusedWhileBooked(t *testing.T) {
	s := NewMemoryStore()
	booking, _ := seedBooking(t, s)
	ctx := context.Background()

	assert.ErrorIs(t, s.DeleteListing(ctx, booking.ListingID), ErrListingBooked)
	_, err := s.GetListing(ctx, booking.ListingID)
	require.NoError(t, err)

	_, err = s.ClearBookings(ctx)
	require.NoError(t, err)
	assert.NoError(t, s.DeleteListing(ctx, booking.ListingID))
}
