package auction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/medimandi/medimandi-backend/pkg/config"
	"github.com/medimandi/medimandi-backend/pkg/db/models"
	"github.com/medimandi/medimandi-backend/pkg/enums"
	pkgerrors "github.com/medimandi/medimandi-backend/pkg/errors"
	"github.com/medimandi/medimandi-backend/pkg/logger"
	"github.com/medimandi/medimandi-backend/pkg/outbox"
	"github.com/medimandi/medimandi-backend/pkg/outbox/payloads"
	"github.com/medimandi/medimandi-backend/pkg/pricing"

	"github.com/medimandi/medimandi-backend/internal/catalog"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

var hundred = decimal.NewFromInt(100)

// Service drives the bid request and bid lifecycle up to settlement.
type Service interface {
	CreateBidRequests(ctx context.Context, input CreateBidRequestsInput) ([]BidRequestView, error)
	SubmitBid(ctx context.Context, input SubmitBidInput) (*BidView, error)
	CancelBidRequest(ctx context.Context, retailerID, requestID uuid.UUID) error
	CancelBid(ctx context.Context, input CancelBidInput) error

	ListRetailerRequests(ctx context.Context, retailerID uuid.UUID) ([]BidRequestView, error)
	ListAllActive(ctx context.Context) ([]BidRequestView, error)
	ListOpenForDistributor(ctx context.Context, distributorKey string, wholesalerID uuid.UUID) ([]OpenRequestView, error)
	ListWholesalerBids(ctx context.Context, wholesalerID uuid.UUID) ([]WholesalerBidView, error)

	ExpireStaleRequests(ctx context.Context) (int, error)
}

type service struct {
	repo        Repository
	catalogRepo catalog.Repository
	tx          txRunner
	outbox      outbox.Emitter
	cfg         config.AuctionConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the auction service with its required dependencies.
func NewService(
	repo Repository,
	catalogRepo catalog.Repository,
	tx txRunner,
	emitter outbox.Emitter,
	cfg config.AuctionConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, errors.New("auction repository required")
	}
	if catalogRepo == nil {
		return nil, errors.New("catalog repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	return &service{
		repo:        repo,
		catalogRepo: catalogRepo,
		tx:          tx,
		outbox:      emitter,
		cfg:         cfg,
		logg:        logg,
		now:         time.Now,
	}, nil
}

func (s *service) CreateBidRequests(ctx context.Context, input CreateBidRequestsInput) ([]BidRequestView, error) {
	if input.RetailerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "retailer identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
	}

	actor := &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole}
	views := make([]BidRequestView, 0, len(input.Items))
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)
		for _, item := range input.Items {
			product, err := catalogRepo.FindByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", item.ProductID))
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			request := &models.BidRequest{
				RetailerID: input.RetailerID,
				ProductID:  product.ID,
				Quantity:   item.Quantity,
				Status:     enums.BidRequestStatusActive,
			}
			if _, err := repo.CreateBidRequest(ctx, request); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bid request")
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventBidRequestCreated,
				AggregateType: enums.AggregateBidRequest,
				AggregateID:   request.ID,
				Actor:         actor,
				Data: payloads.BidRequestCreatedEvent{
					BidRequestID: request.ID,
					RetailerID:   request.RetailerID,
					ProductID:    request.ProductID,
					Quantity:     request.Quantity,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
			request.Product = product
			views = append(views, toBidRequestView(*request))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// SubmitBid applies the competitive-ordering rule against other wholesalers'
// pending bids inside the same transaction as the write, with the request
// and pending rows locked.
func (s *service) SubmitBid(ctx context.Context, input SubmitBidInput) (*BidView, error) {
	if input.WholesalerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "wholesaler identity missing")
	}
	if input.BidRequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid request id required")
	}
	if input.DiscountPercent.IsNegative() || input.DiscountPercent.GreaterThan(hundred) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 0 and 100")
	}

	actor := &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole}
	var view BidView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)

		request, err := repo.FindBidRequestForUpdate(ctx, input.BidRequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bid request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid request")
		}
		if request.Status != enums.BidRequestStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bid request is no longer active")
		}

		product, err := catalogRepo.FindByID(ctx, request.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		mrp, err := resolveMRP(input, product)
		if err != nil {
			return err
		}

		pending, err := repo.PendingBidsForUpdate(ctx, request.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending bids")
		}

		var mine *models.Bid
		bestOther := decimal.Decimal{}
		hasOther := false
		for i := range pending {
			if pending[i].WholesalerID == input.WholesalerID {
				mine = &pending[i]
				continue
			}
			if !hasOther || pending[i].DiscountPercent.GreaterThan(bestOther) {
				bestOther = pending[i].DiscountPercent
				hasOther = true
			}
		}

		if hasOther && !input.DiscountPercent.GreaterThan(bestOther) {
			minimum := bestOther.Add(decimal.NewFromFloat(s.minOutbidStep()))
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("discount must beat the current best offer; bid at least %s%%", minimum)).
				WithDetails(map[string]any{"minimumDiscountPercent": minimum})
		}

		finalPrice := pricing.FinalPrice(mrp, input.DiscountPercent)

		eventType := enums.EventBidCreated
		if mine != nil {
			mine.DiscountPercent = input.DiscountPercent
			mine.MRP = mrp
			mine.FinalPrice = finalPrice
			mine.ExpiresAt = input.ExpiresAt
			if err := repo.SaveBid(ctx, mine); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace pending bid")
			}
			eventType = enums.EventBidUpdated
		} else {
			mine = &models.Bid{
				BidRequestID:    request.ID,
				WholesalerID:    input.WholesalerID,
				DiscountPercent: input.DiscountPercent,
				MRP:             mrp,
				FinalPrice:      finalPrice,
				Status:          enums.BidStatusPending,
				ExpiresAt:       input.ExpiresAt,
			}
			if _, err := repo.CreateBid(ctx, mine); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bid")
			}
		}

		// explicit price inflation flows back into the shared catalog price
		if input.MRP != nil && input.MRP.IsPositive() {
			if err := catalogRepo.RaisePriceIfHigher(ctx, product.ID, *input.MRP); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "raise catalog price")
			}
		}

		if err := repo.TouchBidRequest(ctx, request.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch bid request")
		}

		var payload any
		if eventType == enums.EventBidUpdated {
			payload = payloads.BidUpdatedEvent{
				BidID:           mine.ID,
				BidRequestID:    request.ID,
				WholesalerID:    mine.WholesalerID,
				DiscountPercent: mine.DiscountPercent,
				FinalPrice:      mine.FinalPrice,
			}
		} else {
			payload = payloads.BidCreatedEvent{
				BidID:           mine.ID,
				BidRequestID:    request.ID,
				WholesalerID:    mine.WholesalerID,
				DiscountPercent: mine.DiscountPercent,
				FinalPrice:      mine.FinalPrice,
			}
		}
		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateBid,
			AggregateID:   mine.ID,
			Actor:         actor,
			Data:          payload,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		view = toBidView(*mine)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func resolveMRP(input SubmitBidInput, product *models.CatalogProduct) (decimal.Decimal, error) {
	if input.MRP != nil && input.MRP.IsPositive() {
		return *input.MRP, nil
	}
	if product.MRP.Valid && product.MRP.Decimal.IsPositive() {
		return product.MRP.Decimal, nil
	}
	if input.FallbackMRP != nil && input.FallbackMRP.IsPositive() {
		return *input.FallbackMRP, nil
	}
	return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("no resolvable price for product %q", product.Name))
}

func (s *service) minOutbidStep() float64 {
	if s.cfg.MinOutbidStep > 0 {
		return s.cfg.MinOutbidStep
	}
	return 0.1
}

// CancelBidRequest removes the request outright: the cancellation event is
// recorded first, then the row is hard-deleted, then surviving pending bids
// flip to rejected.
func (s *service) CancelBidRequest(ctx context.Context, retailerID, requestID uuid.UUID) error {
	if retailerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "retailer identity missing")
	}
	if requestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "bid request id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.FindBidRequestForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bid request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid request")
		}
		if request.RetailerID != retailerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "bid request belongs to another retailer")
		}
		if request.Status == enums.BidRequestStatusInactive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bid request already inactive")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventBidRequestCancelled,
			AggregateType: enums.AggregateBidRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: retailerID, Role: string(enums.ActorRoleRetailer)},
			Data: payloads.BidRequestCancelledEvent{
				BidRequestID: request.ID,
				RetailerID:   request.RetailerID,
				ProductID:    request.ProductID,
				Reason:       payloads.CancelReasonUser,
				CancelledAt:  s.now(),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		if err := repo.DeleteBidRequest(ctx, request.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete bid request")
		}
		if err := repo.RejectPendingBids(ctx, request.ID, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject pending bids")
		}
		return nil
	})
}

// CancelBid withdraws one of the wholesaler's own pending bids. Once any of
// the wholesaler's bids on the request has been rejected the affordance is
// gone for good, matching the Cancellable flag on the bid list.
func (s *service) CancelBid(ctx context.Context, input CancelBidInput) error {
	if input.WholesalerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "wholesaler identity missing")
	}
	if input.BidID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "bid id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		bid, err := repo.FindBid(ctx, input.BidID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bid not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid")
		}
		if bid.WholesalerID != input.WholesalerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "bid belongs to another wholesaler")
		}

		// serialize against SubmitBid and AcceptBid on the same request
		if _, err := repo.FindBidRequestForUpdate(ctx, bid.BidRequestID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock bid request")
		}
		bid, err = repo.FindBidForUpdate(ctx, input.BidID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bid not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock bid")
		}
		if bid.Status != enums.BidStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending bids can be cancelled")
		}
		rejected, err := repo.RejectedRequestIDs(ctx, input.WholesalerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve rejected requests")
		}
		if _, ever := rejected[bid.BidRequestID]; ever {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancellation is no longer available on this request")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventBidCancelled,
			AggregateType: enums.AggregateBid,
			AggregateID:   bid.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole},
			Data: payloads.BidCancelledEvent{
				BidID:        bid.ID,
				BidRequestID: bid.BidRequestID,
				WholesalerID: bid.WholesalerID,
				Status:       bid.Status,
				Reason:       payloads.CancelReasonUser,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		if err := repo.DeleteBid(ctx, bid.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete bid")
		}
		return nil
	})
}

func (s *service) ListRetailerRequests(ctx context.Context, retailerID uuid.UUID) ([]BidRequestView, error) {
	if retailerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "retailer identity missing")
	}
	requests, err := s.repo.ListActiveByRetailer(ctx, retailerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list retailer requests")
	}
	return toViews(requests), nil
}

func (s *service) ListAllActive(ctx context.Context) ([]BidRequestView, error) {
	requests, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active requests")
	}
	return toViews(requests), nil
}

// ListOpenForDistributor hides requests where the caller already holds the
// best pending bid, leaving only opportunities to act on. The distributor
// scope comes from the caller's authenticated key, never from request input.
func (s *service) ListOpenForDistributor(ctx context.Context, distributorKey string, wholesalerID uuid.UUID) ([]OpenRequestView, error) {
	if strings.TrimSpace(distributorKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "no distributor relationship on this account")
	}
	distributor, err := s.catalogRepo.FindDistributorByKey(ctx, distributorKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "no distributor relationship on this account")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve distributor")
	}
	requests, err := s.repo.ListActiveForDistributor(ctx, distributor.Code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list distributor requests")
	}
	views := make([]OpenRequestView, 0, len(requests))
	for _, request := range requests {
		hasMyBid := false
		leading := false
		for i, bid := range request.Bids {
			if bid.WholesalerID == wholesalerID {
				hasMyBid = true
				if i == 0 {
					leading = true
				}
			}
		}
		if leading {
			continue
		}
		views = append(views, OpenRequestView{
			BidRequestView: toBidRequestView(request),
			HasMyBid:       hasMyBid,
		})
	}
	return views, nil
}

// ListWholesalerBids returns every bid the caller ever placed, flagged with
// whether it still leads its request and whether cancellation is offered.
// One rejection on a request permanently withdraws the cancel affordance.
func (s *service) ListWholesalerBids(ctx context.Context, wholesalerID uuid.UUID) ([]WholesalerBidView, error) {
	if wholesalerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "wholesaler identity missing")
	}
	bids, err := s.repo.ListBidsByWholesaler(ctx, wholesalerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wholesaler bids")
	}
	requestIDs := make([]uuid.UUID, 0, len(bids))
	seen := map[uuid.UUID]struct{}{}
	for _, bid := range bids {
		if _, ok := seen[bid.BidRequestID]; ok {
			continue
		}
		seen[bid.BidRequestID] = struct{}{}
		requestIDs = append(requestIDs, bid.BidRequestID)
	}
	best, err := s.repo.BestPendingByRequests(ctx, requestIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve best bids")
	}
	rejected, err := s.repo.RejectedRequestIDs(ctx, wholesalerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve rejected requests")
	}
	views := make([]WholesalerBidView, 0, len(bids))
	for _, bid := range bids {
		_, everRejected := rejected[bid.BidRequestID]
		leader, hasBest := best[bid.BidRequestID]
		views = append(views, WholesalerBidView{
			BidView:     toBidView(bid),
			IsBest:      hasBest && leader.ID == bid.ID,
			Cancellable: bid.Status == enums.BidStatusPending && !everRejected,
		})
	}
	return views, nil
}

// ExpireStaleRequests sweeps active requests past the TTL with no recent
// bidding activity. Each request expires in its own transaction; individual
// failures are logged and do not stop the sweep.
func (s *service) ExpireStaleRequests(ctx context.Context) (int, error) {
	ttl := s.cfg.RequestTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	activity := s.cfg.BidActivityWindow
	if activity <= 0 {
		activity = 30 * time.Minute
	}
	now := s.now()
	candidates, err := s.repo.ListExpiredActive(ctx, now.Add(-ttl), now.Add(-activity))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired requests")
	}

	swept := 0
	var failures error
	for _, request := range candidates {
		expired, err := s.expireOne(ctx, request.ID, now.Add(-activity))
		if err != nil {
			failures = multierr.Append(failures, fmt.Errorf("request %s: %w", request.ID, err))
			continue
		}
		if expired {
			swept++
		}
	}
	if failures != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "failed", len(multierr.Errors(failures))), "expiry sweep had per-request failures")
	}
	return swept, nil
}

// expireOne re-verifies eligibility under the row lock before retiring the
// request: between candidate selection and this transaction the request may
// have been accepted, cancelled, or revived by a fresh bid.
func (s *service) expireOne(ctx context.Context, requestID uuid.UUID, activitySince time.Time) (bool, error) {
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.FindBidRequestForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if request.Status != enums.BidRequestStatusActive {
			return nil
		}
		pending, err := repo.PendingBidsForUpdate(ctx, request.ID)
		if err != nil {
			return err
		}
		for _, bid := range pending {
			if bid.CreatedAt.After(activitySince) {
				return nil
			}
		}
		if err := repo.SetBidRequestStatus(ctx, request.ID, enums.BidRequestStatusInactive); err != nil {
			return err
		}
		if err := repo.RejectPendingBids(ctx, request.ID, nil); err != nil {
			return err
		}
		expired = true
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBidRequestCancelled,
			AggregateType: enums.AggregateBidRequest,
			AggregateID:   request.ID,
			Data: payloads.BidRequestCancelledEvent{
				BidRequestID: request.ID,
				RetailerID:   request.RetailerID,
				ProductID:    request.ProductID,
				Reason:       payloads.CancelReasonExpired,
				CancelledAt:  s.now(),
			},
		})
	})
	return expired, err
}

func toViews(requests []models.BidRequest) []BidRequestView {
	views := make([]BidRequestView, 0, len(requests))
	for _, request := range requests {
		views = append(views, toBidRequestView(request))
	}
	return views
}
