package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medimandi/medimandi-backend/pkg/db/models"
	"github.com/medimandi/medimandi-backend/pkg/enums"
)

// Repository defines persistence operations for orders and order buckets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindOpenBucketForUpdate(ctx context.Context, retailerID, wholesalerID uuid.UUID, createdAfter time.Time) (*models.OrderBucket, error)
	FindBucketForUpdate(ctx context.Context, id uuid.UUID) (*models.OrderBucket, error)
	CreateBucket(ctx context.Context, bucket *models.OrderBucket) (*models.OrderBucket, error)
	IncrementBucket(ctx context.Context, bucketID uuid.UUID, amount decimal.Decimal) error
	SetBucketStatus(ctx context.Context, bucketID uuid.UUID, status enums.OrderBucketStatus) error

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	ListOrdersByRetailer(ctx context.Context, retailerID uuid.UUID) ([]models.Order, error)
	ListOrdersByBucket(ctx context.Context, bucketID uuid.UUID) ([]models.Order, error)
	ListBucketsByWholesaler(ctx context.Context, wholesalerID uuid.UUID) ([]models.OrderBucket, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindOpenBucketForUpdate locks the newest reusable bucket for the pair so
// concurrent settlements append to it serially.
func (r *repository) FindOpenBucketForUpdate(ctx context.Context, retailerID, wholesalerID uuid.UUID, createdAfter time.Time) (*models.OrderBucket, error) {
	var bucket models.OrderBucket
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("retailer_id = ? AND wholesaler_id = ? AND status = ? AND created_at > ?",
			retailerID, wholesalerID, enums.OrderBucketStatusPendingFulfillment, createdAfter).
		Order("created_at DESC").
		First(&bucket).Error
	if err != nil {
		return nil, err
	}
	return &bucket, nil
}

// FindBucketForUpdate locks one bucket by id for a state transition.
func (r *repository) FindBucketForUpdate(ctx context.Context, id uuid.UUID) (*models.OrderBucket, error) {
	var bucket models.OrderBucket
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&bucket).Error
	if err != nil {
		return nil, err
	}
	return &bucket, nil
}

func (r *repository) CreateBucket(ctx context.Context, bucket *models.OrderBucket) (*models.OrderBucket, error) {
	if err := r.db.WithContext(ctx).Create(bucket).Error; err != nil {
		return nil, err
	}
	return bucket, nil
}

func (r *repository) IncrementBucket(ctx context.Context, bucketID uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.OrderBucket{}).
		Where("id = ?", bucketID).
		Updates(map[string]any{
			"total_price": gorm.Expr("total_price + ?", amount),
			"item_count":  gorm.Expr("item_count + 1"),
		}).Error
}

func (r *repository) SetBucketStatus(ctx context.Context, bucketID uuid.UUID, status enums.OrderBucketStatus) error {
	return r.db.WithContext(ctx).Model(&models.OrderBucket{}).
		Where("id = ?", bucketID).
		Update("status", status).Error
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) ListOrdersByRetailer(ctx context.Context, retailerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("retailer_id = ?", retailerID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *repository) ListOrdersByBucket(ctx context.Context, bucketID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("bucket_id = ?", bucketID).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

func (r *repository) ListBucketsByWholesaler(ctx context.Context, wholesalerID uuid.UUID) ([]models.OrderBucket, error) {
	var buckets []models.OrderBucket
	err := r.db.WithContext(ctx).
		Preload("Orders").
		Where("wholesaler_id = ?", wholesalerID).
		Order("created_at DESC").
		Find(&buckets).Error
	return buckets, err
}
