package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/anjiri1684/travel_booking/database"
	"github.com/anjiri1684/travel_booking/models"
	"github.com/anjiri1684/travel_booking/notifications"
	"github.com/sirupsen/logrus"
)

// Publisher is the message broker. *mq.Publisher satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// OutboxRelay moves queued notification jobs from the database to the
// broker. A job whose status update fails after publishing is published
// again on the next run; the dispatcher skips jobs already sent.
type OutboxRelay struct {
	store   database.Store
	pub     Publisher
	batch   int
	timeout time.Duration
	log     *logrus.Logger
	now     func() time.Time
}

func NewOutboxRelay(store database.Store, pub Publisher, batch int, log *logrus.Logger) *OutboxRelay {
	if batch <= 0 {
		batch = 100
	}
	return &OutboxRelay{store: store, pub: pub, batch: batch, timeout: time.Minute, log: log, now: time.Now}
}

// Run implements cron.Job.
func (r *OutboxRelay) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	n, err := r.Flush(ctx)
	if err != nil {
		r.log.WithError(err).WithField("published", n).Error("Outbox relay stopped early")
		return
	}
	if n > 0 {
		r.log.WithField("published", n).Info("Outbox relay published notification jobs")
	}
}

// Flush publishes up to one batch of queued jobs and returns how many were
// published. It stops at the first broker error.
func (r *OutboxRelay) Flush(ctx context.Context) (int, error) {
	queued, err := r.store.ListQueuedNotificationJobs(ctx, r.batch)
	if err != nil {
		return 0, fmt.Errorf("list queued jobs: %w", err)
	}

	published := 0
	for i := range queued {
		job := &queued[i]
		msg := notifications.Job{JobID: job.ID, BookingID: job.BookingID, Recipient: job.Recipient}
		if err := r.pub.PublishJSON(ctx, notifications.RoutingKeyBookingConfirmed, msg); err != nil {
			return published, fmt.Errorf("publish job %s: %w", job.ID, err)
		}

		now := r.now()
		job.Status = models.JobPublished
		job.PublishedAt = &now
		if err := r.store.SaveNotificationJob(ctx, job); err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{"job_id": job.ID, "booking_id": job.BookingID}).
				Error("Published notification job but could not mark it")
			continue
		}
		published++
	}
	return published, nil
}
