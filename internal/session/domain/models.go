package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SessionLink maps a local cart to a remote checkout session. Exactly one
// active link exists per cart; replacement deactivates the old row instead of
// rewriting it, preserving the audit trail and preventing stale id reuse.
type SessionLink struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	CartID        string       `json:"cart_id" gorm:"type:text;not null;index"`
	SessionID     string       `json:"session_id" gorm:"type:text;not null;index"`
	IsActive      bool         `json:"is_active" gorm:"not null;default:true"`
	IsChanged     bool         `json:"is_changed" gorm:"not null;default:false"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"not null"`
	DeactivatedAt *time.Time   `json:"deactivated_at,omitempty"`
}

func (SessionLink) TableName() string { return "checkout_session_links" }
