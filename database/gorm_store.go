package database

import (
	"context"
	"time"

	"github.com/anjiri1684/travel_booking/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) CreateListing(ctx context.Context, l *models.Listing) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(l).Error
}

func (s *GormStore) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := s.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (s *GormStore) ListListings(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	var listings []models.Listing
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&listings).Error
	return listings, err
}

func (s *GormStore) SaveListing(ctx context.Context, l *models.Listing) error {
	return s.db.WithContext(ctx).Save(l).Error
}

func (s *GormStore) DeleteListing(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing models.Listing
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&listing, "id = ?", id).Error; err != nil {
			return err
		}
		var booked int64
		if err := tx.Model(&models.Booking{}).Where("listing_id = ?", id).Count(&booked).Error; err != nil {
			return err
		}
		if booked > 0 {
			return ErrListingBooked
		}
		return tx.Delete(&listing).Error
	})
}

func (s *GormStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(b).Error
}

func (s *GormStore) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).Preload("Listing").First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *GormStore) ListBookingsByUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Listing").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&bookings).Error
	return bookings, err
}

func (s *GormStore) SaveBooking(ctx context.Context, b *models.Booking) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(b).Error
}

func (s *GormStore) ClearBookings(ctx context.Context) (int64, error) {
	var cleared int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&models.NotificationJob{}).Error; err != nil {
			return err
		}
		if err := all.Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		res := all.Delete(&models.Booking{})
		cleared = res.RowsAffected
		return res.Error
	})
	return cleared, err
}

func (s *GormStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (s *GormStore) GetPaymentByTxRef(ctx context.Context, txRef string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).Where("tx_ref = ?", txRef).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *GormStore) LockPaymentByTxRef(ctx context.Context, txRef string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tx_ref = ?", txRef).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *GormStore) ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&payments).Error
	return payments, err
}

func (s *GormStore) ListPendingPaymentsBefore(ctx context.Context, before time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.PaymentPending, before).
		Order("created_at asc").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

func (s *GormStore) SavePayment(ctx context.Context, p *models.Payment) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error
}

func (s *GormStore) CreateNotificationJob(ctx context.Context, j *models.NotificationJob) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	// A second confirmation of the same booking must not queue a duplicate.
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(j).Error
}

func (s *GormStore) GetNotificationJob(ctx context.Context, id uuid.UUID) (*models.NotificationJob, error) {
	var job models.NotificationJob
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *GormStore) ListQueuedNotificationJobs(ctx context.Context, limit int) ([]models.NotificationJob, error) {
	var jobs []models.NotificationJob
	err := s.db.WithContext(ctx).
		Where("status = ?", models.JobQueued).
		Order("created_at asc").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (s *GormStore) SaveNotificationJob(ctx context.Context, j *models.NotificationJob) error {
	return s.db.WithContext(ctx).Save(j).Error
}
