package services

import (
	"encoding/hex"
	"time"

	"github.com/anjiri1684/travel_booking/apperrors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// civilDate drops the clock and zone so that nights are counted on
// calendar days.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ValidateStay(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperrors.Validation("Start date and end date are required.")
	}
	if !civilDate(end).After(civilDate(start)) {
		return apperrors.Validation("End date must be after start date.")
	}
	return nil
}

// Nights is the number of whole days between the two calendar dates.
func Nights(start, end time.Time) int64 {
	return int64(civilDate(end).Sub(civilDate(start)).Hours() / 24)
}

func QuoteTotal(pricePerNight decimal.Decimal, start, end time.Time) (decimal.Decimal, error) {
	if err := ValidateStay(start, end); err != nil {
		return decimal.Zero, err
	}
	if !pricePerNight.IsPositive() {
		return decimal.Zero, apperrors.Validation("Price per night must be greater than 0.")
	}
	total := pricePerNight.Mul(decimal.NewFromInt(Nights(start, end)))
	if !total.IsPositive() {
		return decimal.Zero, apperrors.Validation("Total price must be greater than 0.")
	}
	return total, nil
}

// TransactionRef derives the gateway reference of a booking's payment.
// The same booking id always yields the same reference.
func TransactionRef(prefix string, bookingID uuid.UUID) string {
	return prefix + "-" + hex.EncodeToString(bookingID[:])
}
