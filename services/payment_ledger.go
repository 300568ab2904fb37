package services

import (
	"strings"

	"github.com/anjiri1684/travel_booking/models"
)

// CanTransitionPayment reports whether a payment may move from one status
// to another. Only pending payments move; everything else is terminal.
func CanTransitionPayment(from, to string) bool {
	return from == models.PaymentPending && to != "" && to != models.PaymentPending
}

func CanTransitionBooking(from, to string) bool {
	if from != models.BookingPending {
		return false
	}
	return to == models.BookingConfirmed || to == models.BookingCanceled
}

// NormalizeGatewayStatus maps a status reported by the gateway onto the
// payment status vocabulary.
func NormalizeGatewayStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return models.PaymentFailed
	case "success", "successful":
		return models.PaymentCompleted
	case "cancelled":
		return models.PaymentCanceled
	}
	return s
}

// IsCascadingFailure reports whether a non-success payment status should
// also cancel the booking. Plain failures leave the booking pending.
func IsCascadingFailure(status string) bool {
	switch status {
	case models.PaymentPending, models.PaymentFailed, models.PaymentCompleted:
		return false
	}
	return true
}
