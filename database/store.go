package database

import (
	"context"
	"errors"
	"time"

	"github.com/anjiri1684/travel_booking/models"
	"github.com/google/uuid"
)

// ErrListingBooked is returned by DeleteListing while bookings reference the
// listing.
var ErrListingBooked = errors.New("listing has bookings")

// Store is the durable record of listings, bookings, payments and
// notification jobs. Lookups that find nothing return an error matching
// gorm.ErrRecordNotFound.
type Store interface {
	// Transaction runs fn against a store bound to a single transaction.
	// Returning an error from fn rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CreateListing(ctx context.Context, l *models.Listing) error
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	ListListings(ctx context.Context, limit, offset int) ([]models.Listing, error)
	SaveListing(ctx context.Context, l *models.Listing) error
	// DeleteListing fails with ErrListingBooked once any booking points at
	// the listing.
	DeleteListing(ctx context.Context, id uuid.UUID) error

	CreateBooking(ctx context.Context, b *models.Booking) error
	// GetBooking loads the booking with its listing.
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error)
	SaveBooking(ctx context.Context, b *models.Booking) error
	// ClearBookings removes every booking together with its payments and
	// notification jobs.
	ClearBookings(ctx context.Context) (int64, error)

	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPaymentByTxRef(ctx context.Context, txRef string) (*models.Payment, error)
	// LockPaymentByTxRef is GetPaymentByTxRef holding a row lock until the
	// surrounding transaction ends.
	LockPaymentByTxRef(ctx context.Context, txRef string) (*models.Payment, error)
	ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
	ListPendingPaymentsBefore(ctx context.Context, before time.Time, limit int) ([]models.Payment, error)
	SavePayment(ctx context.Context, p *models.Payment) error

	CreateNotificationJob(ctx context.Context, j *models.NotificationJob) error
	GetNotificationJob(ctx context.Context, id uuid.UUID) (*models.NotificationJob, error)
	ListQueuedNotificationJobs(ctx context.Context, limit int) ([]models.NotificationJob, error)
	SaveNotificationJob(ctx context.Context, j *models.NotificationJob) error
}
