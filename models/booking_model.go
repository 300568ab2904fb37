package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCanceled  = "canceled"
)

// DateLayout is the wire format of start_date and end_date.
const DateLayout = "2006-01-02"

type Booking struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key" json:"booking_id"`
	ListingID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"property_id"`
	UserID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	GuestEmail string          `gorm:"size:255;not null" json:"-"`
	GuestName  string          `gorm:"size:255" json:"-"`
	StartDate  time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate    time.Time       `gorm:"type:date;not null" json:"end_date"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_price"`
	Status     string          `gorm:"size:20;not null;default:'pending'" json:"status"`

	Listing *Listing `gorm:"foreignkey:ListingID" json:"listing,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
