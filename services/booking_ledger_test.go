package services

import (
	"testing"
	"time"

	"github.com/anjiri1684/travel_booking/apperrors"
	"github.com/anjiri1684/travel_booking/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestValidateStay(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr bool
	}{
		{name: "one night", start: day("2025-01-01"), end: day("2025-01-02")},
		{name: "equal dates", start: day("2025-01-01"), end: day("2025-01-01"), wantErr: true},
		{name: "inverted dates", start: day("2025-01-03"), end: day("2025-01-01"), wantErr: true},
		{name: "missing start", end: day("2025-01-01"), wantErr: true},
		{name: "same day different clock", start: day("2025-01-01").Add(2 * time.Hour), end: day("2025-01-01").Add(20 * time.Hour), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStay(tt.start, tt.end)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestQuoteTotal(t *testing.T) {
	tests := []struct {
		name  string
		price string
		start string
		end   string
		want  string
	}{
		{name: "two nights", price: "100", start: "2025-01-01", end: "2025-01-03", want: "200"},
		{name: "fractional rate", price: "49.99", start: "2025-03-01", end: "2025-03-04", want: "149.97"},
		{name: "across month end", price: "75.50", start: "2025-01-30", end: "2025-02-02", want: "226.5"},
		{name: "across DST change", price: "10", start: "2025-03-29", end: "2025-04-01", want: "30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, err := QuoteTotal(decimal.RequireFromString(tt.price), day(tt.start), day(tt.end))
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(total), "got %s", total)

			nights := decimal.NewFromInt(Nights(day(tt.start), day(tt.end)))
			assert.True(t, decimal.RequireFromString(tt.price).Mul(nights).Equal(total))
		})
	}
}

func TestQuoteTotal_RejectsNonPositivePrice(t *testing.T) {
	_, err := QuoteTotal(decimal.Zero, day("2025-01-01"), day("2025-01-03"))
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = QuoteTotal(decimal.NewFromInt(-5), day("2025-01-01"), day("2025-01-03"))
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestTransactionRef_Deterministic(t *testing.T) {
	id := uuid.MustParse("3f2504e0-4f89-11d3-9a0c-0305e82c3301")

	first := TransactionRef("TRAVEL", id)
	second := TransactionRef("TRAVEL", id)
	assert.Equal(t, first, second)
	assert.Equal(t, "TRAVEL-3f2504e04f8911d39a0c0305e82c3301", first)

	assert.NotEqual(t, first, TransactionRef("TRAVEL", uuid.New()))
}
