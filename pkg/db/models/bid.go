package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medimandi/medimandi-backend/pkg/enums"
)

// Bid is a wholesaler's discount offer against a bid request. At most one
// pending bid exists per (bid request, wholesaler) pair; resubmission
// replaces the pending bid in place.
type Bid struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BidRequestID    uuid.UUID       `gorm:"column:bid_request_id;type:uuid;not null;index:ix_bids_bid_request"`
	WholesalerID    uuid.UUID       `gorm:"column:wholesaler_id;type:uuid;not null;index:ix_bids_wholesaler"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	MRP             decimal.Decimal `gorm:"column:mrp;type:numeric(12,2);not null"`
	FinalPrice      decimal.Decimal `gorm:"column:final_price;type:numeric(12,2);not null"`
	Status          enums.BidStatus `gorm:"column:status;type:bid_status;not null;default:'pending'"`
	ExpiresAt       *time.Time      `gorm:"column:expires_at"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
