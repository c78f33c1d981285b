package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// OrderLink records that a remote session produced a local order. The unique
// session_id index is the sole guard against double order creation across the
// confirmation and push delivery paths.
type OrderLink struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	SessionID      string       `json:"session_id" gorm:"type:text;not null;uniqueIndex"`
	ReservationID  string       `json:"reservation_id" gorm:"type:text"`
	OrderID        string       `json:"order_id" gorm:"type:text;not null"`
	IsAcknowledged bool         `json:"is_acknowledged" gorm:"not null;default:false"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"not null"`
}

func (OrderLink) TableName() string { return "checkout_order_links" }

// PushRecord counts push notifications that arrived for a session with no
// local order. At the configured threshold the reservation is cancelled
// instead of retried forever.
type PushRecord struct {
	ID           snowflake.ID   `json:"id" gorm:"primaryKey"`
	SessionID    string         `json:"session_id" gorm:"type:text;not null;uniqueIndex"`
	AttemptCount int            `json:"attempt_count" gorm:"not null;default:0"`
	LastPayload  datatypes.JSON `json:"last_payload,omitempty"`
	CreatedAt    time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"not null"`
}

func (PushRecord) TableName() string { return "checkout_push_records" }
