package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/medimandi/medimandi-backend/pkg/enums"
)

// BidRequest is a retailer's standing demand for a quantity of a product,
// open to competing discount offers while active.
type BidRequest struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RetailerID uuid.UUID              `gorm:"column:retailer_id;type:uuid;not null;index:ix_bid_requests_retailer"`
	ProductID  uuid.UUID              `gorm:"column:product_id;type:uuid;not null"`
	Quantity   int                    `gorm:"column:quantity;not null"`
	Status     enums.BidRequestStatus `gorm:"column:status;type:bid_request_status;not null;default:'active'"`
	Product    *CatalogProduct        `gorm:"foreignKey:ProductID"`
	Bids       []Bid                  `gorm:"foreignKey:BidRequestID"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
