package services

import (
	"testing"

	"github.com/anjiri1684/travel_booking/models"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionPayment(t *testing.T) {
	assert.True(t, CanTransitionPayment(models.PaymentPending, models.PaymentCompleted))
	assert.True(t, CanTransitionPayment(models.PaymentPending, models.PaymentFailed))
	assert.True(t, CanTransitionPayment(models.PaymentPending, models.PaymentReverted))
	assert.True(t, CanTransitionPayment(models.PaymentPending, "refunded"))

	assert.False(t, CanTransitionPayment(models.PaymentPending, models.PaymentPending))
	assert.False(t, CanTransitionPayment(models.PaymentCompleted, models.PaymentFailed))
	assert.False(t, CanTransitionPayment(models.PaymentCompleted, models.PaymentCompleted))
	assert.False(t, CanTransitionPayment(models.PaymentFailed, models.PaymentCompleted))
}

func TestCanTransitionBooking(t *testing.T) {
	assert.True(t, CanTransitionBooking(models.BookingPending, models.BookingConfirmed))
	assert.True(t, CanTransitionBooking(models.BookingPending, models.BookingCanceled))

	assert.False(t, CanTransitionBooking(models.BookingConfirmed, models.BookingCanceled))
	assert.False(t, CanTransitionBooking(models.BookingCanceled, models.BookingConfirmed))
	assert.False(t, CanTransitionBooking(models.BookingPending, models.BookingPending))
}

func TestNormalizeGatewayStatus(t *testing.T) {
	assert.Equal(t, models.PaymentFailed, NormalizeGatewayStatus(""))
	assert.Equal(t, models.PaymentCompleted, NormalizeGatewayStatus("Success"))
	assert.Equal(t, models.PaymentCanceled, NormalizeGatewayStatus("cancelled"))
	assert.Equal(t, models.PaymentReverted, NormalizeGatewayStatus(" REVERTED "))
	assert.Equal(t, models.PaymentPending, NormalizeGatewayStatus("pending"))
}

func TestIsCascadingFailure(t *testing.T) {
	assert.False(t, IsCascadingFailure(models.PaymentPending))
	assert.False(t, IsCascadingFailure(models.PaymentFailed))
	assert.True(t, IsCascadingFailure(models.PaymentReverted))
	assert.True(t, IsCascadingFailure(models.PaymentCanceled))
}
