package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medimandi/medimandi-backend/pkg/config"
	"github.com/medimandi/medimandi-backend/pkg/db/models"
	"github.com/medimandi/medimandi-backend/pkg/enums"
	pkgerrors "github.com/medimandi/medimandi-backend/pkg/errors"
	"github.com/medimandi/medimandi-backend/pkg/logger"
	"github.com/medimandi/medimandi-backend/pkg/outbox"
	"github.com/medimandi/medimandi-backend/pkg/outbox/payloads"
	"github.com/medimandi/medimandi-backend/pkg/pricing"

	"github.com/medimandi/medimandi-backend/internal/auction"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service settles accepted bids into orders and bucketed fulfillment groups.
type Service interface {
	AcceptBid(ctx context.Context, input AcceptBidInput) (*OrderView, error)
	CloseBucket(ctx context.Context, input CloseBucketInput) (*BucketView, error)
	ListRetailerOrders(ctx context.Context, retailerID uuid.UUID) ([]OrderView, error)
	ListWholesalerBuckets(ctx context.Context, wholesalerID uuid.UUID) ([]BucketView, error)
}

type service struct {
	repo        Repository
	auctionRepo auction.Repository
	tx          txRunner
	outbox      outbox.Emitter
	cfg         config.AuctionConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the settlement service with its required dependencies.
func NewService(
	repo Repository,
	auctionRepo auction.Repository,
	tx txRunner,
	emitter outbox.Emitter,
	cfg config.AuctionConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, errors.New("settlement repository required")
	}
	if auctionRepo == nil {
		return nil, errors.New("auction repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	return &service{
		repo:        repo,
		auctionRepo: auctionRepo,
		tx:          tx,
		outbox:      emitter,
		cfg:         cfg,
		logg:        logg,
		now:         time.Now,
	}, nil
}

// AcceptBid runs the whole settlement in one transaction: the order captures
// the bid's price terms, the request closes, and sibling pending bids flip
// to rejected.
func (s *service) AcceptBid(ctx context.Context, input AcceptBidInput) (*OrderView, error) {
	if input.RetailerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "retailer identity missing")
	}
	if input.BidID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid id required")
	}

	var view OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		auctionRepo := s.auctionRepo.WithTx(tx)

		bid, err := auctionRepo.FindBid(ctx, input.BidID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bid not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid")
		}

		// locking the request serializes acceptance against competing
		// submissions and other acceptances
		request, err := auctionRepo.FindBidRequestForUpdate(ctx, bid.BidRequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bid request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid request")
		}

		// the first read raced with self-replacing submissions; reload the
		// bid under its row lock so the order captures the current terms
		bid, err = auctionRepo.FindBidForUpdate(ctx, input.BidID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bid not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock bid")
		}
		if request.RetailerID != input.RetailerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "bid request belongs to another retailer")
		}
		if request.Status != enums.BidRequestStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bid request is no longer active")
		}
		if bid.Status != enums.BidStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bid is no longer pending")
		}

		total := pricing.TotalPrice(bid.MRP, bid.DiscountPercent, request.Quantity)

		bucket, err := s.resolveBucket(ctx, repo, request.RetailerID, bid.WholesalerID)
		if err != nil {
			return err
		}

		order := &models.Order{
			BucketID:        bucket.ID,
			BidID:           bid.ID,
			BidRequestID:    request.ID,
			ProductID:       request.ProductID,
			RetailerID:      request.RetailerID,
			WholesalerID:    bid.WholesalerID,
			Quantity:        request.Quantity,
			MRP:             bid.MRP,
			DiscountPercent: bid.DiscountPercent,
			TotalPrice:      total,
			PickupPoint:     input.PickupPoint,
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.IncrementBucket(ctx, bucket.ID, total); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bucket totals")
		}

		if err := auctionRepo.SetBidRequestStatus(ctx, request.ID, enums.BidRequestStatusInactive); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close bid request")
		}
		bid.Status = enums.BidStatusAccepted
		if err := auctionRepo.SaveBid(ctx, bid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept bid")
		}
		if err := auctionRepo.RejectPendingBids(ctx, request.ID, &bid.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject sibling bids")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole},
			Data: payloads.OrderCreatedEvent{
				OrderID:      order.ID,
				BucketID:     bucket.ID,
				BidID:        bid.ID,
				BidRequestID: request.ID,
				RetailerID:   request.RetailerID,
				WholesalerID: bid.WholesalerID,
				ProductID:    request.ProductID,
				Quantity:     request.Quantity,
				TotalPrice:   total,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		view = toOrderView(*order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// resolveBucket reuses the newest pending bucket for the pair inside the
// configured window, otherwise opens a fresh one.
func (s *service) resolveBucket(ctx context.Context, repo Repository, retailerID, wholesalerID uuid.UUID) (*models.OrderBucket, error) {
	window := s.cfg.BucketWindow
	if window <= 0 {
		window = time.Hour
	}
	bucket, err := repo.FindOpenBucketForUpdate(ctx, retailerID, wholesalerID, s.now().Add(-window))
	if err == nil {
		return bucket, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find open bucket")
	}
	bucket = &models.OrderBucket{
		RetailerID:   retailerID,
		WholesalerID: wholesalerID,
		Status:       enums.OrderBucketStatusPendingFulfillment,
	}
	if _, err := repo.CreateBucket(ctx, bucket); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bucket")
	}
	return bucket, nil
}

// CloseBucket transitions a pending_fulfillment bucket to closed and emits
// one order_updated event per contained order.
func (s *service) CloseBucket(ctx context.Context, input CloseBucketInput) (*BucketView, error) {
	if input.WholesalerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "wholesaler identity missing")
	}
	if input.BucketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bucket id required")
	}

	var view BucketView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		bucket, err := repo.FindBucketForUpdate(ctx, input.BucketID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bucket not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bucket")
		}
		if bucket.WholesalerID != input.WholesalerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "bucket belongs to another wholesaler")
		}
		if bucket.Status != enums.OrderBucketStatusPendingFulfillment {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bucket is already closed")
		}

		if err := repo.SetBucketStatus(ctx, bucket.ID, enums.OrderBucketStatusClosed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close bucket")
		}
		bucket.Status = enums.OrderBucketStatusClosed

		orders, err := repo.ListOrdersByBucket(ctx, bucket.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bucket orders")
		}
		actor := &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole}
		for _, order := range orders {
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderUpdated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actor,
				Data: payloads.OrderUpdatedEvent{
					OrderID:      order.ID,
					BucketID:     bucket.ID,
					BucketStatus: bucket.Status,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}

		bucket.Orders = orders
		view = toBucketView(*bucket)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *service) ListRetailerOrders(ctx context.Context, retailerID uuid.UUID) ([]OrderView, error) {
	if retailerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "retailer identity missing")
	}
	orders, err := s.repo.ListOrdersByRetailer(ctx, retailerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list retailer orders")
	}
	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, toOrderView(order))
	}
	return views, nil
}

func (s *service) ListWholesalerBuckets(ctx context.Context, wholesalerID uuid.UUID) ([]BucketView, error) {
	if wholesalerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "wholesaler identity missing")
	}
	buckets, err := s.repo.ListBucketsByWholesaler(ctx, wholesalerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wholesaler buckets")
	}
	views := make([]BucketView, 0, len(buckets))
	for _, bucket := range buckets {
		views = append(views, toBucketView(bucket))
	}
	return views, nil
}
