package reconcile

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/medimandi/medimandi-backend/pkg/db/models"
)

// Repository covers the staging, matching, and promotion SQL for one
// reconciliation run. Every method is expected to run inside the ingest
// transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	EnsureDistributor(ctx context.Context, externalKey string) (*models.Distributor, error)

	StageRows(ctx context.Context, rows []models.StagedRow) error
	MarkExactMatches(ctx context.Context, batchID uuid.UUID) (int64, error)
	MarkFuzzyMatches(ctx context.Context, batchID uuid.UUID, prefixChars int, threshold float64) (int64, error)
	ApplyMatchEffects(ctx context.Context, batchID uuid.UUID, distributorCode int32) error
	ReplaceUnidentified(ctx context.Context, batchID uuid.UUID, distributorCode int32) (int64, error)
	PromotionCandidates(ctx context.Context) ([]PromotionCandidate, error)
	DeleteUnidentifiedByName(ctx context.Context, name string) error
	DeleteBatch(ctx context.Context, batchID uuid.UUID) error
}

// PromotionCandidate is an unmatched name staged by at least two distinct
// distributors, carrying the merged attributes for the new catalog entry.
type PromotionCandidate struct {
	Name             string              `gorm:"column:name"`
	Manufacturer     *string             `gorm:"column:manufacturer"`
	Price            decimal.NullDecimal `gorm:"column:price"`
	DistributorCodes pq.Int32Array       `gorm:"column:distributor_codes;type:integer[]"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reconcile repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// EnsureDistributor resolves the compact code for an external key, assigning
// one from the sequence on first sight.
func (r *repository) EnsureDistributor(ctx context.Context, externalKey string) (*models.Distributor, error) {
	if err := r.db.WithContext(ctx).Exec(
		`INSERT INTO distributors (external_key) VALUES (?)
		 ON CONFLICT (external_key) DO NOTHING`,
		externalKey,
	).Error; err != nil {
		return nil, err
	}
	var distributor models.Distributor
	err := r.db.WithContext(ctx).Where("external_key = ?", externalKey).First(&distributor).Error
	if err != nil {
		return nil, err
	}
	return &distributor, nil
}

func (r *repository) StageRows(ctx context.Context, rows []models.StagedRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// MarkExactMatches joins staged rows to the catalog by normalized name and
// records the matched product id. Returns the number of rows matched.
func (r *repository) MarkExactMatches(ctx context.Context, batchID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE staged_rows s
		 SET matched = TRUE, product_id = c.id
		 FROM catalog_products c
		 WHERE s.batch_id = ?
		   AND NOT s.matched
		   AND c.normalized_name = s.normalized_name`,
		batchID,
	)
	return res.RowsAffected, res.Error
}

// MarkFuzzyMatches resolves the remaining rows against catalog products
// sharing the same normalized prefix, keeping only the highest-similarity
// candidate per distinct incoming normalized name.
func (r *repository) MarkFuzzyMatches(ctx context.Context, batchID uuid.UUID, prefixChars int, threshold float64) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE staged_rows s
		 SET matched = TRUE, product_id = best.product_id
		 FROM (
		     SELECT DISTINCT ON (u.normalized_name) u.normalized_name, c.id AS product_id
		     FROM (SELECT DISTINCT normalized_name FROM staged_rows
		           WHERE batch_id = ? AND NOT matched) u
		     JOIN catalog_products c
		       ON left(c.normalized_name, ?) = left(u.normalized_name, ?)
		      AND similarity(c.normalized_name, u.normalized_name) >= ?
		     ORDER BY u.normalized_name,
		              similarity(c.normalized_name, u.normalized_name) DESC,
		              c.normalized_name
		 ) best
		 WHERE s.batch_id = ?
		   AND NOT s.matched
		   AND s.normalized_name = best.normalized_name`,
		batchID, prefixChars, prefixChars, threshold, batchID,
	)
	return res.RowsAffected, res.Error
}

// ApplyMatchEffects performs the three catalog updates for every matched row
// in the batch: idempotent membership add, highest-wins price raise, and
// manufacturer backfill when the catalog holds no usable value.
func (r *repository) ApplyMatchEffects(ctx context.Context, batchID uuid.UUID, distributorCode int32) error {
	db := r.db.WithContext(ctx)

	if err := db.Exec(
		`UPDATE catalog_products c
		 SET distributor_codes = array_append(distributor_codes, ?), updated_at = now()
		 WHERE c.id IN (SELECT DISTINCT product_id FROM staged_rows
		                WHERE batch_id = ? AND matched AND product_id IS NOT NULL)
		   AND NOT (? = ANY(c.distributor_codes))`,
		distributorCode, batchID, distributorCode,
	).Error; err != nil {
		return err
	}

	if err := db.Exec(
		`UPDATE catalog_products c
		 SET mrp = agg.max_price, updated_at = now()
		 FROM (SELECT product_id, MAX(price) AS max_price FROM staged_rows
		       WHERE batch_id = ? AND matched AND price IS NOT NULL
		       GROUP BY product_id) agg
		 WHERE c.id = agg.product_id
		   AND (c.mrp IS NULL OR c.mrp < agg.max_price)`,
		batchID,
	).Error; err != nil {
		return err
	}

	return db.Exec(
		`UPDATE catalog_products c
		 SET manufacturer = fill.manufacturer, updated_at = now()
		 FROM (SELECT DISTINCT ON (product_id) product_id, manufacturer FROM staged_rows
		       WHERE batch_id = ? AND matched
		         AND manufacturer IS NOT NULL AND manufacturer <> ''
		       ORDER BY product_id, row_number) fill
		 WHERE c.id = fill.product_id
		   AND (c.manufacturer IS NULL OR c.manufacturer = '' OR c.manufacturer = 'Unknown')`,
		batchID,
	).Error
}

// ReplaceUnidentified swaps the distributor's staged-unmatched set for the
// unmatched remainder of this batch and returns how many rows it now holds.
func (r *repository) ReplaceUnidentified(ctx context.Context, batchID uuid.UUID, distributorCode int32) (int64, error) {
	db := r.db.WithContext(ctx)
	if err := db.Exec(
		`DELETE FROM unidentified_entries WHERE distributor_code = ?`,
		distributorCode,
	).Error; err != nil {
		return 0, err
	}
	res := db.Exec(
		`INSERT INTO unidentified_entries (distributor_code, name, normalized_name, manufacturer, price)
		 SELECT ?, name, normalized_name, manufacturer, price
		 FROM staged_rows
		 WHERE batch_id = ? AND NOT matched`,
		distributorCode, batchID,
	)
	return res.RowsAffected, res.Error
}

// PromotionCandidates groups the staged-unmatched pool by raw name and
// returns every name seen from more than one distributor, with manufacturer
// picked by frequency and price by maximum.
func (r *repository) PromotionCandidates(ctx context.Context) ([]PromotionCandidate, error) {
	var candidates []PromotionCandidate
	err := r.db.WithContext(ctx).Raw(
		`SELECT u.name,
		        (SELECT m.manufacturer FROM unidentified_entries m
		         WHERE m.name = u.name AND m.manufacturer IS NOT NULL AND m.manufacturer <> ''
		         GROUP BY m.manufacturer
		         ORDER BY COUNT(*) DESC, m.manufacturer
		         LIMIT 1) AS manufacturer,
		        MAX(u.price) AS price,
		        array_agg(DISTINCT u.distributor_code) AS distributor_codes
		 FROM unidentified_entries u
		 GROUP BY u.name
		 HAVING COUNT(DISTINCT u.distributor_code) > 1`,
	).Scan(&candidates).Error
	return candidates, err
}

func (r *repository) DeleteUnidentifiedByName(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM unidentified_entries WHERE name = ?`, name,
	).Error
}

func (r *repository) DeleteBatch(ctx context.Context, batchID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Delete(&models.StagedRow{}).Error
}
