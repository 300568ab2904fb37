package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Listing struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"listing_id"`
	OwnerID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"host_id"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Location      string          `gorm:"size:255;not null" json:"location"`
	PricePerNight decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price_per_night"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
