package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anjiri1684/travel_booking/database"
	"github.com/anjiri1684/travel_booking/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RoutingKeyBookingConfirmed is the queue routing key for confirmation emails.
const RoutingKeyBookingConfirmed = "booking.confirmed"

// ErrRedeliver marks a job that stopped before reaching a final state and
// could not be handed back to the outbox. The delivery must be requeued.
var ErrRedeliver = errors.New("notification job must be redelivered")

// releaseTimeout bounds the outbox write made after ctx is already done.
const releaseTimeout = 5 * time.Second

// Job is the queue payload for one confirmation email.
type Job struct {
	JobID     uuid.UUID `json:"job_id"`
	BookingID uuid.UUID `json:"booking_id"`
	Recipient string    `json:"recipient"`
}

type DispatcherConfig struct {
	MaxRetries int
	Backoff    time.Duration
	From       string
	AppName    string
}

// Dispatcher delivers booking confirmation emails, retrying failed sends
// with a fixed backoff.
type Dispatcher struct {
	store  database.Store
	mailer Mailer
	cfg    DispatcherConfig
	log    *logrus.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(store database.Store, mailer Mailer, cfg DispatcherConfig, log *logrus.Logger) *Dispatcher {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.AppName == "" {
		cfg.AppName = "Travel Booking"
	}
	return &Dispatcher{store: store, mailer: mailer, cfg: cfg, log: log, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Handle sends the confirmation email for job. A missing booking drops the
// job without retrying. Every other send failure is retried up to
// MaxRetries times unless it is ErrPermanent. A job interrupted by ctx or by
// a store error goes back to the outbox as queued, or fails with
// ErrRedeliver when that is not possible.
func (d *Dispatcher) Handle(ctx context.Context, job Job) error {
	log := d.log.WithFields(logrus.Fields{"job_id": job.JobID, "booking_id": job.BookingID})

	record, err := d.store.GetNotificationJob(ctx, job.JobID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = nil
	case err != nil:
		return fmt.Errorf("%w: load notification job: %w", ErrRedeliver, err)
	case record.Status == models.JobSent:
		log.Info("Confirmation email already sent, skipping")
		return nil
	}

	booking, err := d.store.GetBooking(ctx, job.BookingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("❌ Confirmation email dropped: booking not found")
		d.mark(ctx, record, models.JobDropped, 0, "booking not found")
		return nil
	}
	if err != nil {
		return d.release(ctx, record, 0, fmt.Errorf("load booking: %w", err))
	}

	recipient := job.Recipient
	if recipient == "" {
		recipient = booking.GuestEmail
	}
	msg := d.compose(booking, recipient)

	for attempt := 1; ; attempt++ {
		err = d.mailer.Send(ctx, msg)
		if err == nil {
			d.mark(ctx, record, models.JobSent, attempt, "")
			log.WithField("to", recipient).Info("✅ Confirmation email sent")
			return nil
		}

		if cerr := ctx.Err(); cerr != nil {
			return d.release(ctx, record, attempt, fmt.Errorf("%w (last send error: %v)", cerr, err))
		}
		log := log.WithError(err).WithField("attempt", attempt)
		if errors.Is(err, ErrPermanent) {
			log.Error("❌ Confirmation email failed permanently")
			d.mark(ctx, record, models.JobFailed, attempt, err.Error())
			return err
		}
		if attempt > d.cfg.MaxRetries {
			log.Error("❌ Confirmation email failed, retries exhausted")
			d.mark(ctx, record, models.JobFailed, attempt, err.Error())
			return err
		}

		log.Warn("Confirmation email failed, retrying")
		if serr := d.sleep(ctx, d.cfg.Backoff); serr != nil {
			return d.release(ctx, record, attempt, fmt.Errorf("%w (last send error: %v)", serr, err))
		}
	}
}

func (d *Dispatcher) compose(b *models.Booking, recipient string) Message {
	listingName := "your listing"
	if b.Listing != nil {
		listingName = b.Listing.Name
	}
	guest := b.GuestName
	if guest == "" {
		guest = recipient
	}

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your booking (Ref: %s) for %s from %s to %s has been confirmed.\n"+
			"Total Price Paid: %s.\n\n"+
			"Thank you for booking with %s!",
		guest, b.ID, listingName,
		b.StartDate.Format(models.DateLayout), b.EndDate.Format(models.DateLayout),
		b.TotalPrice.StringFixed(2), d.cfg.AppName,
	)

	return Message{
		Subject: "Booking Confirmation for " + listingName,
		Body:    body,
		From:    d.cfg.From,
		To:      []string{recipient},
	}
}

// release puts an unfinished job back in the outbox so the relay publishes
// it again. It writes with a context detached from ctx, which may already
// be canceled.
func (d *Dispatcher) release(ctx context.Context, record *models.NotificationJob, attempts int, cause error) error {
	if record == nil {
		return fmt.Errorf("%w: %w", ErrRedeliver, cause)
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	msg := cause.Error()
	record.Status = models.JobQueued
	record.Attempts += attempts
	record.LastError = &msg
	if err := d.store.SaveNotificationJob(wctx, record); err != nil {
		d.log.WithError(err).WithField("job_id", record.ID).Error("Could not return notification job to the outbox")
		return fmt.Errorf("%w: %w", ErrRedeliver, cause)
	}
	d.log.WithError(cause).WithField("job_id", record.ID).Warn("Notification job interrupted, returned to the outbox")
	return cause
}

func (d *Dispatcher) mark(ctx context.Context, record *models.NotificationJob, status string, attempts int, lastErr string) {
	if record == nil {
		return
	}
	record.Status = status
	record.Attempts += attempts
	if lastErr != "" {
		record.LastError = &lastErr
	}
	if err := d.store.SaveNotificationJob(ctx, record); err != nil {
		d.log.WithError(err).WithField("job_id", record.ID).Error("Failed to update notification job")
	}
}
