package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anjiri1684/travel_booking/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type memData struct {
	listings map[uuid.UUID]models.Listing
	bookings map[uuid.UUID]models.Booking
	payments map[uuid.UUID]models.Payment
	jobs     map[uuid.UUID]models.NotificationJob
}

func newMemData() *memData {
	return &memData{
		listings: make(map[uuid.UUID]models.Listing),
		bookings: make(map[uuid.UUID]models.Booking),
		payments: make(map[uuid.UUID]models.Payment),
		jobs:     make(map[uuid.UUID]models.NotificationJob),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.listings {
		c.listings[k] = v
	}
	for k, v := range d.bookings {
		c.bookings[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	for k, v := range d.jobs {
		c.jobs[k] = v
	}
	return c
}

// MemoryStore keeps everything in process memory. Transactions are fully
// serialized: Transaction holds the store lock while fn runs against a copy
// of the data, and the copy replaces the data only when fn succeeds.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemData(), now: time.Now}
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &MemoryStore{data: s.data.clone(), now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *MemoryStore) CreateListing(ctx context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if _, ok := s.data.listings[l.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	s.stamp(&l.CreatedAt, &l.UpdatedAt)
	s.data.listings[l.ID] = *l
	return nil
}

func (s *MemoryStore) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.data.listings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &l, nil
}

func (s *MemoryStore) ListListings(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listings := make([]models.Listing, 0, len(s.data.listings))
	for _, l := range s.data.listings {
		listings = append(listings, l)
	}
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].CreatedAt.After(listings[j].CreatedAt)
	})
	return paginate(listings, limit, offset), nil
}

func (s *MemoryStore) SaveListing(ctx context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.UpdatedAt = s.now()
	s.data.listings[l.ID] = *l
	return nil
}

func (s *MemoryStore) DeleteListing(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.listings[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for _, b := range s.data.bookings {
		if b.ListingID == id {
			return ErrListingBooked
		}
	}
	delete(s.data.listings, id)
	return nil
}

func (s *MemoryStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if _, ok := s.data.bookings[b.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	s.stamp(&b.CreatedAt, &b.UpdatedAt)
	stored := *b
	stored.Listing = nil
	s.data.bookings[b.ID] = stored
	return nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.data.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	s.attachListing(&b)
	return &b, nil
}

func (s *MemoryStore) ListBookingsByUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bookings []models.Booking
	for _, b := range s.data.bookings {
		if b.UserID == userID {
			s.attachListing(&b)
			bookings = append(bookings, b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

func (s *MemoryStore) SaveBooking(ctx context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.UpdatedAt = s.now()
	stored := *b
	stored.Listing = nil
	s.data.bookings[b.ID] = stored
	return nil
}

func (s *MemoryStore) ClearBookings(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := int64(len(s.data.bookings))
	s.data.bookings = make(map[uuid.UUID]models.Booking)
	s.data.payments = make(map[uuid.UUID]models.Payment)
	s.data.jobs = make(map[uuid.UUID]models.NotificationJob)
	return cleared, nil
}

func (s *MemoryStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for _, existing := range s.data.payments {
		if existing.ID == p.ID || existing.TxRef == p.TxRef {
			return gorm.ErrDuplicatedKey
		}
	}
	s.stamp(&p.CreatedAt, &p.UpdatedAt)
	stored := *p
	stored.Booking = nil
	s.data.payments[p.ID] = stored
	return nil
}

func (s *MemoryStore) GetPaymentByTxRef(ctx context.Context, txRef string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.data.payments {
		if p.TxRef == txRef {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// LockPaymentByTxRef needs no extra locking: transactions are serialized.
func (s *MemoryStore) LockPaymentByTxRef(ctx context.Context, txRef string) (*models.Payment, error) {
	return s.GetPaymentByTxRef(ctx, txRef)
}

func (s *MemoryStore) ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payments []models.Payment
	for _, p := range s.data.payments {
		if p.UserID == userID {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
	return payments, nil
}

func (s *MemoryStore) ListPendingPaymentsBefore(ctx context.Context, before time.Time, limit int) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payments []models.Payment
	for _, p := range s.data.payments {
		if p.Status == models.PaymentPending && p.CreatedAt.Before(before) {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.Before(payments[j].CreatedAt)
	})
	return paginate(payments, limit, 0), nil
}

func (s *MemoryStore) SavePayment(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.UpdatedAt = s.now()
	stored := *p
	stored.Booking = nil
	s.data.payments[p.ID] = stored
	return nil
}

func (s *MemoryStore) CreateNotificationJob(ctx context.Context, j *models.NotificationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data.jobs {
		if existing.BookingID == j.BookingID && existing.Kind == j.Kind {
			return nil
		}
	}
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = models.JobQueued
	}
	s.stamp(&j.CreatedAt, &j.UpdatedAt)
	s.data.jobs[j.ID] = *j
	return nil
}

func (s *MemoryStore) GetNotificationJob(ctx context.Context, id uuid.UUID) (*models.NotificationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.data.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &j, nil
}

func (s *MemoryStore) ListQueuedNotificationJobs(ctx context.Context, limit int) ([]models.NotificationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var jobs []models.NotificationJob
	for _, j := range s.data.jobs {
		if j.Status == models.JobQueued {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return paginate(jobs, limit, 0), nil
}

func (s *MemoryStore) SaveNotificationJob(ctx context.Context, j *models.NotificationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j.UpdatedAt = s.now()
	s.data.jobs[j.ID] = *j
	return nil
}

// NotificationJobs returns every job regardless of status.
func (s *MemoryStore) NotificationJobs() []models.NotificationJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]models.NotificationJob, 0, len(s.data.jobs))
	for _, j := range s.data.jobs {
		jobs = append(jobs, j)
	}
	return jobs
}

func (s *MemoryStore) attachListing(b *models.Booking) {
	if l, ok := s.data.listings[b.ListingID]; ok {
		b.Listing = &l
	}
}

func (s *MemoryStore) stamp(created, updated *time.Time) {
	now := s.now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
