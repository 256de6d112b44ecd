package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the immutable record produced when a retailer accepts a bid. MRP
// and discount are captured from the accepted bid at settlement; later
// catalog price changes never touch an order.
type Order struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BucketID        uuid.UUID       `gorm:"column:bucket_id;type:uuid;not null;index:ix_orders_bucket"`
	BidID           uuid.UUID       `gorm:"column:bid_id;type:uuid;not null"`
	BidRequestID    uuid.UUID       `gorm:"column:bid_request_id;type:uuid;not null"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	RetailerID      uuid.UUID       `gorm:"column:retailer_id;type:uuid;not null;index:ix_orders_retailer"`
	WholesalerID    uuid.UUID       `gorm:"column:wholesaler_id;type:uuid;not null;index:ix_orders_wholesaler"`
	Quantity        int             `gorm:"column:quantity;not null"`
	MRP             decimal.Decimal `gorm:"column:mrp;type:numeric(12,2);not null"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	TotalPrice      decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	PickupPoint     *string         `gorm:"column:pickup_point"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}
