package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// MethodCode is the synthetic shipping method forced onto the cart while a
// gateway option is active, so downstream total calculators defer to the
// stored record instead of the host rate table.
const MethodCode = "kassa_gateway"

// Record tracks a provider-chosen shipping option that is not part of the
// host's native shipping-rate catalog. is_active=false means "ignore this
// record, use host shipping rates".
type Record struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	SessionID       string       `json:"session_id" gorm:"type:text;not null;uniqueIndex"`
	IsActive        bool         `json:"is_active" gorm:"not null;default:false"`
	IsPickupPoint   bool         `json:"is_pickup_point" gorm:"not null;default:false"`
	PickupPointName string       `json:"pickup_point_name" gorm:"type:text"`
	// NativeMethod remembers the host rate code that was selected before the
	// gateway took over. Once the cart carries the synthetic method code this
	// is the only place the original selection survives, and it is what a
	// later native re-selection is matched against.
	NativeMethod   string    `json:"native_method" gorm:"type:text"`
	ShippingAmount int64     `json:"shipping_amount" gorm:"not null;default:0"`
	TaxAmount      int64     `json:"tax_amount" gorm:"not null;default:0"`
	TaxRate        int64     `json:"tax_rate" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null"`
}

func (Record) TableName() string { return "shipping_gateway_records" }
