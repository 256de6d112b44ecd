package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medimandi/medimandi-backend/pkg/enums"
)

// UploadProgressEvent reports chunked reconciliation progress for one upload.
type UploadProgressEvent struct {
	UploadID       uuid.UUID `json:"uploadId"`
	DistributorKey string    `json:"distributorKey"`
	RowsProcessed  int       `json:"rowsProcessed"`
	RowsTotal      int       `json:"rowsTotal"`
}

// UploadCompleteEvent carries the final reconciliation counts for an upload.
type UploadCompleteEvent struct {
	UploadID       uuid.UUID `json:"uploadId"`
	DistributorKey string    `json:"distributorKey"`
	RowsTotal      int       `json:"rowsTotal"`
	MatchedExact   int       `json:"matchedExact"`
	MatchedFuzzy   int       `json:"matchedFuzzy"`
	Unmatched      int       `json:"unmatched"`
	Promoted       int       `json:"promoted"`
	CompletedAt    time.Time `json:"completedAt"`
}

// UploadErrorEvent is emitted when an inventory upload fails before commit.
type UploadErrorEvent struct {
	UploadID       uuid.UUID `json:"uploadId"`
	DistributorKey string    `json:"distributorKey"`
	Reason         string    `json:"reason"`
}

// BidRequestCreatedEvent signals a new open bid request.
type BidRequestCreatedEvent struct {
	BidRequestID uuid.UUID `json:"bidRequestId"`
	RetailerID   uuid.UUID `json:"retailerId"`
	ProductID    uuid.UUID `json:"productId"`
	Quantity     int       `json:"quantity"`
}

// Cancellation reasons carried on bid and bid-request cancelled events.
const (
	CancelReasonUser    = "user"
	CancelReasonExpired = "expired"
)

// BidRequestCancelledEvent is emitted when a request is retired, either by
// its retailer or by the expiry sweep.
type BidRequestCancelledEvent struct {
	BidRequestID uuid.UUID `json:"bidRequestId"`
	RetailerID   uuid.UUID `json:"retailerId"`
	ProductID    uuid.UUID `json:"productId"`
	Reason       string    `json:"reason"`
	CancelledAt  time.Time `json:"cancelledAt"`
}

// BidCreatedEvent signals a fresh bid on a request.
type BidCreatedEvent struct {
	BidID           uuid.UUID       `json:"bidId"`
	BidRequestID    uuid.UUID       `json:"bidRequestId"`
	WholesalerID    uuid.UUID       `json:"wholesalerId"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	FinalPrice      decimal.Decimal `json:"finalPrice"`
}

// BidUpdatedEvent is emitted when a wholesaler improves their pending bid.
type BidUpdatedEvent struct {
	BidID           uuid.UUID       `json:"bidId"`
	BidRequestID    uuid.UUID       `json:"bidRequestId"`
	WholesalerID    uuid.UUID       `json:"wholesalerId"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	FinalPrice      decimal.Decimal `json:"finalPrice"`
}

// BidCancelledEvent is emitted when a pending bid is rejected by a sweep or cancellation.
type BidCancelledEvent struct {
	BidID        uuid.UUID       `json:"bidId"`
	BidRequestID uuid.UUID       `json:"bidRequestId"`
	WholesalerID uuid.UUID       `json:"wholesalerId"`
	Status       enums.BidStatus `json:"status"`
	Reason       string          `json:"reason,omitempty"`
}

// OrderUpdatedEvent is emitted when an order's bucket changes state, one
// event per order in the bucket.
type OrderUpdatedEvent struct {
	OrderID      uuid.UUID               `json:"orderId"`
	BucketID     uuid.UUID               `json:"bucketId"`
	BucketStatus enums.OrderBucketStatus `json:"bucketStatus"`
}

// OrderCreatedEvent carries settlement output for downstream consumers.
type OrderCreatedEvent struct {
	OrderID      uuid.UUID       `json:"orderId"`
	BucketID     uuid.UUID       `json:"bucketId"`
	BidID        uuid.UUID       `json:"bidId"`
	BidRequestID uuid.UUID       `json:"bidRequestId"`
	RetailerID   uuid.UUID       `json:"retailerId"`
	WholesalerID uuid.UUID       `json:"wholesalerId"`
	ProductID    uuid.UUID       `json:"productId"`
	Quantity     int             `json:"quantity"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
}
