package models

import (
	"time"

	"github.com/google/uuid"
)

const NotificationBookingConfirmed = "booking_confirmed"

const (
	JobQueued    = "queued"
	JobPublished = "published"
	JobSent      = "sent"
	JobFailed    = "failed"
	JobDropped   = "dropped"
)

// NotificationJob is an outbox row written in the same transaction that
// confirms a booking. The relay publishes it to the queue.
type NotificationJob struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	BookingID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_notification_booking_kind" json:"booking_id"`
	Kind        string     `gorm:"size:50;not null;uniqueIndex:idx_notification_booking_kind" json:"kind"`
	Recipient   string     `gorm:"size:255;not null" json:"recipient"`
	Status      string     `gorm:"size:20;not null;default:'queued';index" json:"status"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	LastError   *string    `gorm:"type:text" json:"last_error,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
