package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medimandi/medimandi-backend/pkg/db/models"
	"github.com/medimandi/medimandi-backend/pkg/enums"
)

// AcceptBidInput settles one bid into an order on behalf of the retailer.
type AcceptBidInput struct {
	RetailerID  uuid.UUID
	BidID       uuid.UUID
	PickupPoint *string
	ActorUserID uuid.UUID
	ActorRole   string
}

// CloseBucketInput marks one of the wholesaler's buckets fulfilled.
type CloseBucketInput struct {
	WholesalerID uuid.UUID
	BucketID     uuid.UUID
	ActorUserID  uuid.UUID
	ActorRole    string
}

// OrderView is the order shape returned to API consumers.
type OrderView struct {
	ID              uuid.UUID       `json:"id"`
	BucketID        uuid.UUID       `json:"bucketId"`
	BidID           uuid.UUID       `json:"bidId"`
	BidRequestID    uuid.UUID       `json:"bidRequestId"`
	ProductID       uuid.UUID       `json:"productId"`
	RetailerID      uuid.UUID       `json:"retailerId"`
	WholesalerID    uuid.UUID       `json:"wholesalerId"`
	Quantity        int             `json:"quantity"`
	MRP             decimal.Decimal `json:"mrp"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	PickupPoint     *string         `json:"pickupPoint,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// BucketView aggregates a wholesaler-facing bucket with its orders.
type BucketView struct {
	ID           uuid.UUID               `json:"id"`
	RetailerID   uuid.UUID               `json:"retailerId"`
	WholesalerID uuid.UUID               `json:"wholesalerId"`
	Status       enums.OrderBucketStatus `json:"status"`
	TotalPrice   decimal.Decimal         `json:"totalPrice"`
	ItemCount    int                     `json:"itemCount"`
	Orders       []OrderView             `json:"orders"`
	CreatedAt    time.Time               `json:"createdAt"`
}

func toOrderView(o models.Order) OrderView {
	return OrderView{
		ID:              o.ID,
		BucketID:        o.BucketID,
		BidID:           o.BidID,
		BidRequestID:    o.BidRequestID,
		ProductID:       o.ProductID,
		RetailerID:      o.RetailerID,
		WholesalerID:    o.WholesalerID,
		Quantity:        o.Quantity,
		MRP:             o.MRP,
		DiscountPercent: o.DiscountPercent,
		TotalPrice:      o.TotalPrice,
		PickupPoint:     o.PickupPoint,
		CreatedAt:       o.CreatedAt,
	}
}

func toBucketView(b models.OrderBucket) BucketView {
	view := BucketView{
		ID:           b.ID,
		RetailerID:   b.RetailerID,
		WholesalerID: b.WholesalerID,
		Status:       b.Status,
		TotalPrice:   b.TotalPrice,
		ItemCount:    b.ItemCount,
		Orders:       make([]OrderView, 0, len(b.Orders)),
		CreatedAt:    b.CreatedAt,
	}
	for _, order := range b.Orders {
		view.Orders = append(view.Orders, toOrderView(order))
	}
	return view
}
