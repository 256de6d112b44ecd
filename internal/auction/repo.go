package auction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medimandi/medimandi-backend/pkg/db/models"
	"github.com/medimandi/medimandi-backend/pkg/enums"
)

// Repository defines persistence operations for bid requests and bids.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateBidRequest(ctx context.Context, request *models.BidRequest) (*models.BidRequest, error)
	FindBidRequest(ctx context.Context, id uuid.UUID) (*models.BidRequest, error)
	FindBidRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.BidRequest, error)
	SetBidRequestStatus(ctx context.Context, id uuid.UUID, status enums.BidRequestStatus) error
	TouchBidRequest(ctx context.Context, id uuid.UUID) error
	DeleteBidRequest(ctx context.Context, id uuid.UUID) error

	ListActiveByRetailer(ctx context.Context, retailerID uuid.UUID) ([]models.BidRequest, error)
	ListActive(ctx context.Context) ([]models.BidRequest, error)
	ListActiveForDistributor(ctx context.Context, distributorCode int32) ([]models.BidRequest, error)
	ListExpiredActive(ctx context.Context, createdBefore, activitySince time.Time) ([]models.BidRequest, error)

	CreateBid(ctx context.Context, bid *models.Bid) (*models.Bid, error)
	SaveBid(ctx context.Context, bid *models.Bid) error
	FindBid(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	FindBidForUpdate(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	DeleteBid(ctx context.Context, id uuid.UUID) error
	PendingBidsForUpdate(ctx context.Context, requestID uuid.UUID) ([]models.Bid, error)
	RejectPendingBids(ctx context.Context, requestID uuid.UUID, except *uuid.UUID) error
	ListBidsByWholesaler(ctx context.Context, wholesalerID uuid.UUID) ([]models.Bid, error)
	BestPendingByRequests(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID]models.Bid, error)
	RejectedRequestIDs(ctx context.Context, wholesalerID uuid.UUID) (map[uuid.UUID]struct{}, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an auction repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBidRequest(ctx context.Context, request *models.BidRequest) (*models.BidRequest, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repository) FindBidRequest(ctx context.Context, id uuid.UUID) (*models.BidRequest, error) {
	var request models.BidRequest
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// FindBidRequestForUpdate locks the request row for the remainder of the
// transaction so concurrent submissions serialize.
func (r *repository) FindBidRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.BidRequest, error) {
	var request models.BidRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) SetBidRequestStatus(ctx context.Context, id uuid.UUID, status enums.BidRequestStatus) error {
	return r.db.WithContext(ctx).Model(&models.BidRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now()}).Error
}

func (r *repository) TouchBidRequest(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.BidRequest{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

func (r *repository) DeleteBidRequest(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.BidRequest{}).Error
}

func (r *repository) ListActiveByRetailer(ctx context.Context, retailerID uuid.UUID) ([]models.BidRequest, error) {
	var requests []models.BidRequest
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Bids", func(db *gorm.DB) *gorm.DB {
			return db.Where("status = ?", enums.BidStatusPending).
				Order("discount_percent DESC")
		}).
		Where("retailer_id = ? AND status = ?", retailerID, enums.BidRequestStatusActive).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *repository) ListActive(ctx context.Context) ([]models.BidRequest, error) {
	var requests []models.BidRequest
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Bids", func(db *gorm.DB) *gorm.DB {
			return db.Where("status = ?", enums.BidStatusPending).
				Order("discount_percent DESC")
		}).
		Where("status = ?", enums.BidRequestStatusActive).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// ListActiveForDistributor restricts active requests to products stocking
// the caller's distributor code.
func (r *repository) ListActiveForDistributor(ctx context.Context, distributorCode int32) ([]models.BidRequest, error) {
	var requests []models.BidRequest
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Bids", func(db *gorm.DB) *gorm.DB {
			return db.Where("status = ?", enums.BidStatusPending).
				Order("discount_percent DESC")
		}).
		Joins("JOIN catalog_products cp ON cp.id = bid_requests.product_id").
		Where("bid_requests.status = ? AND ? = ANY(cp.distributor_codes)",
			enums.BidRequestStatusActive, distributorCode).
		Order("bid_requests.created_at DESC").
		Find(&requests).Error
	return requests, err
}

// ListExpiredActive returns active requests older than createdBefore with no
// pending bid newer than activitySince.
func (r *repository) ListExpiredActive(ctx context.Context, createdBefore, activitySince time.Time) ([]models.BidRequest, error) {
	var requests []models.BidRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.BidRequestStatusActive, createdBefore).
		Where(`NOT EXISTS (SELECT 1 FROM bids b
		       WHERE b.bid_request_id = bid_requests.id
		         AND b.status = ? AND b.created_at > ?)`,
			enums.BidStatusPending, activitySince).
		Order("created_at ASC").
		Find(&requests).Error
	return requests, err
}

func (r *repository) CreateBid(ctx context.Context, bid *models.Bid) (*models.Bid, error) {
	if err := r.db.WithContext(ctx).Create(bid).Error; err != nil {
		return nil, err
	}
	return bid, nil
}

func (r *repository) SaveBid(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Save(bid).Error
}

func (r *repository) FindBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&bid).Error
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// FindBidForUpdate locks the bid row so its price terms cannot change for
// the remainder of the transaction.
func (r *repository) FindBidForUpdate(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&bid).Error
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *repository) DeleteBid(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Bid{}).Error
}

// PendingBidsForUpdate locks every pending bid on the request so the
// competitive-ordering check and the write stay atomic.
func (r *repository) PendingBidsForUpdate(ctx context.Context, requestID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("bid_request_id = ? AND status = ?", requestID, enums.BidStatusPending).
		Order("discount_percent DESC").
		Find(&bids).Error
	return bids, err
}

func (r *repository) RejectPendingBids(ctx context.Context, requestID uuid.UUID, except *uuid.UUID) error {
	query := r.db.WithContext(ctx).Model(&models.Bid{}).
		Where("bid_request_id = ? AND status = ?", requestID, enums.BidStatusPending)
	if except != nil {
		query = query.Where("id <> ?", *except)
	}
	return query.Updates(map[string]any{
		"status":     enums.BidStatusRejected,
		"updated_at": time.Now(),
	}).Error
}

func (r *repository) ListBidsByWholesaler(ctx context.Context, wholesalerID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.WithContext(ctx).
		Where("wholesaler_id = ?", wholesalerID).
		Order("created_at DESC").
		Find(&bids).Error
	return bids, err
}

// BestPendingByRequests returns the highest-discount pending bid per request.
func (r *repository) BestPendingByRequests(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID]models.Bid, error) {
	best := map[uuid.UUID]models.Bid{}
	if len(requestIDs) == 0 {
		return best, nil
	}
	var bids []models.Bid
	err := r.db.WithContext(ctx).Raw(
		`SELECT DISTINCT ON (bid_request_id) *
		 FROM bids
		 WHERE bid_request_id IN ? AND status = ?
		 ORDER BY bid_request_id, discount_percent DESC, created_at ASC`,
		requestIDs, enums.BidStatusPending,
	).Scan(&bids).Error
	if err != nil {
		return nil, err
	}
	for _, bid := range bids {
		best[bid.BidRequestID] = bid
	}
	return best, nil
}

// RejectedRequestIDs returns the requests on which the wholesaler has ever
// had a bid rejected.
func (r *repository) RejectedRequestIDs(ctx context.Context, wholesalerID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Bid{}).
		Where("wholesaler_id = ? AND status = ?", wholesalerID, enums.BidStatusRejected).
		Distinct().
		Pluck("bid_request_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
