package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StagedRow holds one raw inventory row for the duration of a single ingest
// transaction. Rows are keyed by batch id so concurrent uploads from other
// distributors never observe each other, and are deleted before the
// transaction commits.
type StagedRow struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BatchID        uuid.UUID           `gorm:"column:batch_id;type:uuid;not null;index:ix_staged_rows_batch"`
	RowNumber      int                 `gorm:"column:row_number;not null"`
	Name           string              `gorm:"column:name;not null"`
	NormalizedName string              `gorm:"column:normalized_name;not null"`
	Manufacturer   *string             `gorm:"column:manufacturer"`
	Price          decimal.NullDecimal `gorm:"column:price;type:numeric(12,2)"`
	BatchNo        *string             `gorm:"column:batch_no"`
	Expiry         *string             `gorm:"column:expiry"`
	Matched        bool                `gorm:"column:matched;not null;default:false"`
	ProductID      *uuid.UUID          `gorm:"column:product_id;type:uuid"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
}
