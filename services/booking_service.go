package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/travel_booking/apperrors"
	"github.com/anjiri1684/travel_booking/database"
	"github.com/anjiri1684/travel_booking/models"
	"github.com/anjiri1684/travel_booking/payments"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PaymentGateway is the remote payment service. *payments.ChapaClient
// satisfies it.
type PaymentGateway interface {
	Initiate(ctx context.Context, req payments.InitiateRequest) (*payments.InitiateResponse, error)
	Verify(ctx context.Context, txRef string) (*payments.VerifyOutcome, error)
}

type BookingConfig struct {
	Currency    string
	TxRefPrefix string
	// CallbackBaseURL is the public origin the gateway calls back on.
	CallbackBaseURL string
	ReturnURL       string
}

// Payer is the authenticated principal paying for a booking.
type Payer struct {
	UserID    uuid.UUID
	Email     string
	Username  string
	FirstName string
	LastName  string
}

func (p Payer) username() string {
	if p.Username != "" {
		return p.Username
	}
	return "guest-" + p.UserID.String()[:8]
}

// identity returns the email and names sent to the gateway, synthesizing
// whatever the identity provider left empty.
func (p Payer) identity() (email, first, last string) {
	email, first, last = p.Email, p.FirstName, p.LastName
	if email == "" {
		email = p.username() + "@example.com"
	}
	if first == "" {
		first = p.username()
	}
	if last == "" {
		last = p.username()
	}
	return email, first, last
}

func (p Payer) displayName() string {
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		return name
	}
	return p.username()
}

type CreateBookingInput struct {
	Payer     Payer
	ListingID uuid.UUID
	StartDate time.Time
	EndDate   time.Time
}

type CreateBookingResult struct {
	Booking     models.Booking
	Payment     models.Payment
	CheckoutURL string
}

type VerifyKind string

const (
	// VerifyConfirmed: the gateway reported success and the booking is now confirmed.
	VerifyConfirmed VerifyKind = "confirmed"
	// VerifyDeclined: the gateway reported a non-success payment status.
	VerifyDeclined VerifyKind = "declined"
	// VerifyRejected: the verify call itself failed on the gateway side.
	VerifyRejected VerifyKind = "rejected"
	// VerifyUnreachable: the outcome is unknown, nothing was changed.
	VerifyUnreachable VerifyKind = "unreachable"
	// VerifySettled: the payment had already left pending before this call.
	VerifySettled VerifyKind = "settled"
)

type VerifyResult struct {
	Kind          VerifyKind
	TxRef         string
	PaymentStatus string
	BookingID     uuid.UUID
	BookingStatus string
	GatewayTxID   string
	Message       string
}

// BookingService runs the booking → payment → confirmation workflow.
type BookingService struct {
	store   database.Store
	gateway PaymentGateway
	cfg     BookingConfig
	log     *logrus.Logger
	now     func() time.Time
}

func NewBookingService(store database.Store, gateway PaymentGateway, cfg BookingConfig, log *logrus.Logger) *BookingService {
	return &BookingService{
		store:   store,
		gateway: gateway,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// CreateBooking persists a pending booking and its pending payment, then
// opens a checkout session with the gateway. Any failure after the insert
// leaves the booking canceled and the payment failed.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error) {
	if err := ValidateStay(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	email, _, _ := in.Payer.identity()

	var booking models.Booking
	var payment models.Payment
	err := s.store.Transaction(ctx, func(tx database.Store) error {
		listing, err := tx.GetListing(ctx, in.ListingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("listing", in.ListingID.String())
			}
			return err
		}

		total, err := QuoteTotal(listing.PricePerNight, in.StartDate, in.EndDate)
		if err != nil {
			return err
		}

		booking = models.Booking{
			ID:         uuid.New(),
			ListingID:  listing.ID,
			UserID:     in.Payer.UserID,
			GuestEmail: email,
			GuestName:  in.Payer.displayName(),
			StartDate:  civilDate(in.StartDate),
			EndDate:    civilDate(in.EndDate),
			TotalPrice: total,
			Status:     models.BookingPending,
		}
		if err := tx.CreateBooking(ctx, &booking); err != nil {
			return err
		}

		payment = models.Payment{
			ID:        uuid.New(),
			BookingID: booking.ID,
			UserID:    in.Payer.UserID,
			Amount:    total,
			Currency:  s.cfg.Currency,
			TxRef:     TransactionRef(s.cfg.TxRefPrefix, booking.ID),
			Status:    models.PaymentPending,
		}
		if err := tx.CreatePayment(ctx, &payment); err != nil {
			return err
		}

		booking.Listing = listing
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		s.log.WithError(err).WithField("listing_id", in.ListingID).Error("Failed to persist booking")
		return nil, apperrors.Internal("An internal error occurred while creating the booking.", err)
	}

	resp, err := s.gateway.Initiate(ctx, s.initiateRequest(&booking, &payment, in.Payer))
	if err != nil {
		return nil, s.abandon(ctx, &booking, &payment, err)
	}

	checkoutURL := resp.CheckoutURL
	payment.CheckoutURL = &checkoutURL
	if err := s.store.SavePayment(ctx, &payment); err != nil {
		return nil, s.abandon(ctx, &booking, &payment, err)
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"tx_ref":     payment.TxRef,
		"amount":     payment.Amount.StringFixed(2),
	}).Info("Payment initiated")

	return &CreateBookingResult{Booking: booking, Payment: payment, CheckoutURL: checkoutURL}, nil
}

func (s *BookingService) initiateRequest(booking *models.Booking, payment *models.Payment, payer Payer) payments.InitiateRequest {
	email, first, last := payer.identity()

	listingName := "your stay"
	if booking.Listing != nil {
		listingName = booking.Listing.Name
	}

	return payments.InitiateRequest{
		Amount:      payment.Amount.StringFixed(2),
		Currency:    payment.Currency,
		Email:       email,
		FirstName:   first,
		LastName:    last,
		TxRef:       payment.TxRef,
		CallbackURL: s.CallbackURL(payment.TxRef),
		ReturnURL:   s.cfg.ReturnURL,
		Customization: payments.Customization{
			Title:       "Booking Payment",
			Description: fmt.Sprintf("Payment for booking %s at %s", booking.ID, listingName),
		},
	}
}

// CallbackURL is the verify endpoint the gateway calls for txRef.
func (s *BookingService) CallbackURL(txRef string) string {
	return fmt.Sprintf("%s/api/v1/payments/%s/verify/", strings.TrimRight(s.cfg.CallbackBaseURL, "/"), txRef)
}

// abandon is the compensating action of CreateBooking. The gateway session
// cannot be rolled back, so the local records are marked instead.
func (s *BookingService) abandon(ctx context.Context, booking *models.Booking, payment *models.Payment, cause error) error {
	log := s.log.WithFields(logrus.Fields{"booking_id": booking.ID, "tx_ref": payment.TxRef})

	err := s.store.Transaction(ctx, func(tx database.Store) error {
		p, err := tx.LockPaymentByTxRef(ctx, payment.TxRef)
		if err != nil {
			return err
		}
		if CanTransitionPayment(p.Status, models.PaymentFailed) {
			p.Status = models.PaymentFailed
			if err := tx.SavePayment(ctx, p); err != nil {
				return err
			}
		}

		b, err := tx.GetBooking(ctx, p.BookingID)
		if err != nil {
			return err
		}
		if CanTransitionBooking(b.Status, models.BookingCanceled) {
			b.Status = models.BookingCanceled
			if err := tx.SaveBooking(ctx, b); err != nil {
				return err
			}
		}

		payment.Status = p.Status
		booking.Status = b.Status
		return nil
	})
	if err != nil {
		log.WithError(err).Error("🔥 CRITICAL: failed to cancel booking after payment initiation failure")
	}

	details := map[string]any{"booking_id": booking.ID.String(), "tx_ref": payment.TxRef}

	var gwErr *payments.GatewayError
	switch {
	case errors.As(cause, &gwErr):
		log.WithError(cause).WithField("gateway_status", gwErr.StatusCode).Error("Chapa initiation failed")
		details["gateway_status"] = gwErr.StatusCode
		details["gateway_response"] = gwErr.Details()
		return apperrors.Gateway("Booking created but payment initiation failed.", cause).WithDetails(details)
	case payments.IsTransient(cause):
		log.WithError(cause).Error("Chapa unreachable during initiation")
		details["reason"] = cause.Error()
		return apperrors.Unavailable("Payment gateway could not be reached, the booking was canceled.", cause).WithDetails(details)
	default:
		log.WithError(cause).Error("Exception during payment initiation")
		details["reason"] = cause.Error()
		return apperrors.Internal("An internal error occurred during payment processing.", cause).WithDetails(details)
	}
}

// VerifyPayment asks the gateway for the outcome of txRef and applies it.
// caller is nil when the gateway itself calls back; otherwise it must own
// the payment.
func (s *BookingService) VerifyPayment(ctx context.Context, txRef string, caller *uuid.UUID) (*VerifyResult, error) {
	log := s.log.WithField("tx_ref", txRef)

	payment, err := s.store.GetPaymentByTxRef(ctx, txRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment", txRef)
		}
		log.WithError(err).Error("Failed to load payment")
		return nil, apperrors.Internal("An internal error occurred.", err)
	}
	if caller != nil && *caller != payment.UserID {
		log.WithField("caller", caller.String()).Warn("Verification requested by a user who does not own the payment")
		return nil, apperrors.Forbidden("You are not allowed to verify this payment.")
	}

	if payment.Status != models.PaymentPending {
		booking, err := s.store.GetBooking(ctx, payment.BookingID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Internal("An internal error occurred.", err)
		}
		return settledResult(payment, booking), nil
	}

	outcome, err := s.gateway.Verify(ctx, txRef)
	if err != nil {
		var gwErr *payments.GatewayError
		switch {
		case payments.IsTransient(err):
			log.WithError(err).WithField("booking_id", payment.BookingID).Warn("Chapa verification unreachable, payment left pending")
			return &VerifyResult{
				Kind:          VerifyUnreachable,
				TxRef:         txRef,
				PaymentStatus: payment.Status,
				BookingID:     payment.BookingID,
				Message:       "Payment verification failed due to network error.",
			}, nil
		case errors.As(err, &gwErr):
			log.WithError(err).WithField("gateway_status", gwErr.StatusCode).Error("Chapa verification failed")
			return s.decline(ctx, txRef, models.PaymentFailed, VerifyRejected, gwErr.Message)
		default:
			log.WithError(err).Error("Internal error during payment verification")
			return nil, apperrors.Internal("An internal error occurred.", err)
		}
	}

	if outcome.Succeeded() {
		return s.confirm(ctx, txRef, outcome)
	}

	status := NormalizeGatewayStatus(outcome.Status)
	if status == models.PaymentCompleted {
		// data reports success but the envelope does not
		status = models.PaymentFailed
	}
	return s.decline(ctx, txRef, status, VerifyDeclined, outcome.Message)
}

func (s *BookingService) confirm(ctx context.Context, txRef string, outcome *payments.VerifyOutcome) (*VerifyResult, error) {
	log := s.log.WithField("tx_ref", txRef)

	var result *VerifyResult
	err := s.store.Transaction(ctx, func(tx database.Store) error {
		payment, err := tx.LockPaymentByTxRef(ctx, txRef)
		if err != nil {
			return err
		}
		booking, err := tx.GetBooking(ctx, payment.BookingID)
		if err != nil {
			return err
		}

		// A concurrent verification got here first.
		if payment.Status != models.PaymentPending {
			result = settledResult(payment, booking)
			return nil
		}
		if !CanTransitionBooking(booking.Status, models.BookingConfirmed) {
			return fmt.Errorf("booking %s is %s and cannot be confirmed", booking.ID, booking.Status)
		}

		payment.Status = models.PaymentCompleted
		if outcome.GatewayTxID != "" {
			gatewayTxID := outcome.GatewayTxID
			payment.GatewayTxID = &gatewayTxID
		}
		if err := tx.SavePayment(ctx, payment); err != nil {
			return err
		}

		booking.Status = models.BookingConfirmed
		if err := tx.SaveBooking(ctx, booking); err != nil {
			return err
		}

		job := models.NotificationJob{
			ID:        uuid.New(),
			BookingID: booking.ID,
			Kind:      models.NotificationBookingConfirmed,
			Recipient: booking.GuestEmail,
			Status:    models.JobQueued,
		}
		if err := tx.CreateNotificationJob(ctx, &job); err != nil {
			return err
		}

		result = &VerifyResult{
			Kind:          VerifyConfirmed,
			TxRef:         txRef,
			PaymentStatus: payment.Status,
			BookingID:     booking.ID,
			BookingStatus: booking.Status,
			GatewayTxID:   outcome.GatewayTxID,
			Message:       "Payment completed and booking confirmed.",
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("🔥 CRITICAL: gateway reported success but the booking could not be confirmed")
		return nil, apperrors.Internal("An internal error occurred.", err)
	}

	if result.Kind == VerifyConfirmed {
		log.WithFields(logrus.Fields{
			"booking_id":    result.BookingID,
			"gateway_tx_id": result.GatewayTxID,
		}).Info("✅ Payment completed and booking confirmed")
	}
	return result, nil
}

func (s *BookingService) decline(ctx context.Context, txRef, status string, kind VerifyKind, message string) (*VerifyResult, error) {
	log := s.log.WithFields(logrus.Fields{"tx_ref": txRef, "payment_status": status})

	var result *VerifyResult
	err := s.store.Transaction(ctx, func(tx database.Store) error {
		payment, err := tx.LockPaymentByTxRef(ctx, txRef)
		if err != nil {
			return err
		}
		booking, err := tx.GetBooking(ctx, payment.BookingID)
		if err != nil {
			return err
		}

		if payment.Status != models.PaymentPending {
			result = settledResult(payment, booking)
			return nil
		}

		result = &VerifyResult{
			Kind:          kind,
			TxRef:         txRef,
			PaymentStatus: payment.Status,
			BookingID:     booking.ID,
			BookingStatus: booking.Status,
			Message:       message,
		}
		if !CanTransitionPayment(payment.Status, status) {
			// still pending at the gateway
			return nil
		}

		payment.Status = status
		if err := tx.SavePayment(ctx, payment); err != nil {
			return err
		}
		if IsCascadingFailure(status) && CanTransitionBooking(booking.Status, models.BookingCanceled) {
			booking.Status = models.BookingCanceled
			if err := tx.SaveBooking(ctx, booking); err != nil {
				return err
			}
		}

		result.PaymentStatus = payment.Status
		result.BookingStatus = booking.Status
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to record declined payment")
		return nil, apperrors.Internal("An internal error occurred.", err)
	}

	if result.Kind != VerifySettled {
		log.WithField("booking_status", result.BookingStatus).Warn("Payment not successful")
	}
	return result, nil
}

func settledResult(payment *models.Payment, booking *models.Booking) *VerifyResult {
	result := &VerifyResult{
		Kind:          VerifySettled,
		TxRef:         payment.TxRef,
		PaymentStatus: payment.Status,
		BookingID:     payment.BookingID,
		Message:       "Payment already processed.",
	}
	if payment.GatewayTxID != nil {
		result.GatewayTxID = *payment.GatewayTxID
	}
	if booking != nil {
		result.BookingStatus = booking.Status
	}
	return result
}

// ReconcilePending re-verifies payments that have stayed pending for longer
// than olderThan and returns how many of them left pending.
func (s *BookingService) ReconcilePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	stale, err := s.store.ListPendingPaymentsBefore(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return 0, fmt.Errorf("list pending payments: %w", err)
	}

	settled := 0
	for _, p := range stale {
		result, err := s.VerifyPayment(ctx, p.TxRef, nil)
		if err != nil {
			s.log.WithError(err).WithField("tx_ref", p.TxRef).Error("Reconciliation of pending payment failed")
			continue
		}
		if result.PaymentStatus != models.PaymentPending {
			settled++
		}
	}
	return settled, nil
}
