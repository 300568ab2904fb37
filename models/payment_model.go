package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Known payment statuses. The gateway may report others (lower-cased) and
// they are stored verbatim.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentCanceled  = "canceled"
	PaymentReverted  = "reverted"
)

type Payment struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"payment_id"`
	BookingID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"booking_id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	TxRef       string          `gorm:"size:100;not null;uniqueIndex" json:"tx_ref"`
	GatewayTxID *string         `gorm:"size:255" json:"chapa_transaction_id"`
	Status      string          `gorm:"size:20;not null;index" json:"status"`
	CheckoutURL *string         `gorm:"size:512" json:"checkout_url"`

	Booking *Booking `gorm:"foreignkey:BookingID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
