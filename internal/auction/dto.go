package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medimandi/medimandi-backend/pkg/db/models"
	"github.com/medimandi/medimandi-backend/pkg/enums"
)

// BidRequestItem is one (product, quantity) tuple in a creation call.
type BidRequestItem struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// CreateBidRequestsInput opens one bid request per item for the retailer.
type CreateBidRequestsInput struct {
	RetailerID  uuid.UUID
	Items       []BidRequestItem
	ActorUserID uuid.UUID
	ActorRole   string
}

// SubmitBidInput carries one discount offer. MRP and FallbackMRP are the
// first and third links of the price resolution chain; the catalog price
// sits between them.
type SubmitBidInput struct {
	WholesalerID    uuid.UUID
	BidRequestID    uuid.UUID
	DiscountPercent decimal.Decimal
	MRP             *decimal.Decimal
	FallbackMRP     *decimal.Decimal
	ExpiresAt       *time.Time
	ActorUserID     uuid.UUID
	ActorRole       string
}

// CancelBidInput withdraws one of the wholesaler's pending bids.
type CancelBidInput struct {
	WholesalerID uuid.UUID
	BidID        uuid.UUID
	ActorUserID  uuid.UUID
	ActorRole    string
}

// BidView is the bid shape returned to API consumers.
type BidView struct {
	ID              uuid.UUID       `json:"id"`
	BidRequestID    uuid.UUID       `json:"bidRequestId"`
	WholesalerID    uuid.UUID       `json:"wholesalerId"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	MRP             decimal.Decimal `json:"mrp"`
	FinalPrice      decimal.Decimal `json:"finalPrice"`
	Status          enums.BidStatus `json:"status"`
	ExpiresAt       *time.Time      `json:"expiresAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// BidRequestView is a bid request with its pending bids, best offer first.
type BidRequestView struct {
	ID          uuid.UUID              `json:"id"`
	RetailerID  uuid.UUID              `json:"retailerId"`
	ProductID   uuid.UUID              `json:"productId"`
	ProductName string                 `json:"productName"`
	Quantity    int                    `json:"quantity"`
	Status      enums.BidRequestStatus `json:"status"`
	Bids        []BidView              `json:"bids"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// OpenRequestView is one actionable request in the distributor-scoped feed.
type OpenRequestView struct {
	BidRequestView
	HasMyBid bool `json:"hasMyBid"`
}

// WholesalerBidView annotates a bid with its standing on the parent request.
type WholesalerBidView struct {
	BidView
	IsBest      bool `json:"isBest"`
	Cancellable bool `json:"cancellable"`
}

func toBidView(b models.Bid) BidView {
	return BidView{
		ID:              b.ID,
		BidRequestID:    b.BidRequestID,
		WholesalerID:    b.WholesalerID,
		DiscountPercent: b.DiscountPercent,
		MRP:             b.MRP,
		FinalPrice:      b.FinalPrice,
		Status:          b.Status,
		ExpiresAt:       b.ExpiresAt,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func toBidRequestView(r models.BidRequest) BidRequestView {
	view := BidRequestView{
		ID:         r.ID,
		RetailerID: r.RetailerID,
		ProductID:  r.ProductID,
		Quantity:   r.Quantity,
		Status:     r.Status,
		Bids:       make([]BidView, 0, len(r.Bids)),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Product != nil {
		view.ProductName = r.Product.Name
	}
	for _, bid := range r.Bids {
		view.Bids = append(view.Bids, toBidView(bid))
	}
	return view
}
