package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Reconciler re-verifies payments stuck in pending. *services.BookingService
// satisfies it.
type Reconciler interface {
	ReconcilePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// ReconcileJob settles payments whose gateway callback never arrived or
// whose verification hit a network error.
type ReconcileJob struct {
	svc     Reconciler
	after   time.Duration
	batch   int
	timeout time.Duration
	log     *logrus.Logger
}

func NewReconcileJob(svc Reconciler, after time.Duration, batch int, log *logrus.Logger) *ReconcileJob {
	return &ReconcileJob{svc: svc, after: after, batch: batch, timeout: 2 * time.Minute, log: log}
}

func (j *ReconcileJob) Run() {
	j.log.Debug("Running job: ReconcilePendingPayments...")

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	settled, err := j.svc.ReconcilePending(ctx, j.after, j.batch)
	if err != nil {
		j.log.WithError(err).Error("Error reconciling pending payments")
		return
	}
	if settled > 0 {
		j.log.WithField("settled", settled).Info("Reconciled pending payment(s)")
	}
}
