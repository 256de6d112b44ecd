package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medimandi/medimandi-backend/pkg/enums"
)

// OrderBucket aggregates orders between the same retailer/wholesaler pair.
// A bucket is reused while it is pending fulfillment and younger than the
// configured window; afterwards a fresh bucket opens.
type OrderBucket struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RetailerID   uuid.UUID               `gorm:"column:retailer_id;type:uuid;not null;index:ix_order_buckets_pair"`
	WholesalerID uuid.UUID               `gorm:"column:wholesaler_id;type:uuid;not null;index:ix_order_buckets_pair"`
	Status       enums.OrderBucketStatus `gorm:"column:status;type:order_bucket_status;not null;default:'pending_fulfillment'"`
	TotalPrice   decimal.Decimal         `gorm:"column:total_price;type:numeric(12,2);not null;default:0"`
	ItemCount    int                     `gorm:"column:item_count;not null;default:0"`
	Orders       []Order                 `gorm:"foreignKey:BucketID"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
}
