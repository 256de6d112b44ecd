package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/medimandi/medimandi-backend/pkg/db/models"
)

// Repository defines persistence operations for the canonical catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.CatalogProduct, error)
	FindByNormalizedName(ctx context.Context, normalized string) (*models.CatalogProduct, error)
	Create(ctx context.Context, product *models.CatalogProduct) (*models.CatalogProduct, error)
	AddDistributorCode(ctx context.Context, productID uuid.UUID, code int32) error
	RaisePriceIfHigher(ctx context.Context, productID uuid.UUID, price decimal.Decimal) error
	BackfillManufacturer(ctx context.Context, productID uuid.UUID, manufacturer string) error
	Search(ctx context.Context, normalizedQuery string, threshold float64, limit int) ([]SearchHit, error)
	FindDistributorByKey(ctx context.Context, externalKey string) (*models.Distributor, error)
}

// SearchHit pairs a catalog product with its similarity score.
type SearchHit struct {
	Product models.CatalogProduct
	Score   float64
}

type searchRow struct {
	models.CatalogProduct
	Score float64 `gorm:"column:score"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CatalogProduct, error) {
	var product models.CatalogProduct
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByNormalizedName(ctx context.Context, normalized string) (*models.CatalogProduct, error) {
	var product models.CatalogProduct
	err := r.db.WithContext(ctx).Where("normalized_name = ?", normalized).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindDistributorByKey resolves the compact code for an external distributor
// key without assigning one.
func (r *repository) FindDistributorByKey(ctx context.Context, externalKey string) (*models.Distributor, error) {
	var distributor models.Distributor
	err := r.db.WithContext(ctx).Where("external_key = ?", externalKey).First(&distributor).Error
	if err != nil {
		return nil, err
	}
	return &distributor, nil
}

func (r *repository) Create(ctx context.Context, product *models.CatalogProduct) (*models.CatalogProduct, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// AddDistributorCode appends the code to the membership set only when absent.
func (r *repository) AddDistributorCode(ctx context.Context, productID uuid.UUID, code int32) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE catalog_products
		 SET distributor_codes = array_append(distributor_codes, ?), updated_at = now()
		 WHERE id = ? AND NOT (? = ANY(distributor_codes))`,
		code, productID, code,
	).Error
}

// RaisePriceIfHigher applies the highest-wins reference price policy.
func (r *repository) RaisePriceIfHigher(ctx context.Context, productID uuid.UUID, price decimal.Decimal) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE catalog_products
		 SET mrp = ?, updated_at = now()
		 WHERE id = ? AND (mrp IS NULL OR mrp < ?)`,
		price, productID, price,
	).Error
}

// BackfillManufacturer fills the manufacturer only when no usable value is stored.
func (r *repository) BackfillManufacturer(ctx context.Context, productID uuid.UUID, manufacturer string) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE catalog_products
		 SET manufacturer = ?, updated_at = now()
		 WHERE id = ? AND (manufacturer IS NULL OR manufacturer = '' OR manufacturer = 'Unknown')`,
		manufacturer, productID,
	).Error
}

func (r *repository) Search(ctx context.Context, normalizedQuery string, threshold float64, limit int) ([]SearchHit, error) {
	var rows []searchRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT *, similarity(normalized_name, ?) AS score
		 FROM catalog_products
		 WHERE similarity(normalized_name, ?) >= ?
		 ORDER BY score DESC, normalized_name ASC
		 LIMIT ?`,
		normalizedQuery, normalizedQuery, threshold, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, SearchHit{Product: row.CatalogProduct, Score: row.Score})
	}
	return hits, nil
}
