package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnidentifiedEntry is a staged inventory row that failed to match any
// catalog product for one distributor. The table holds only each
// distributor's latest upload; rows are replaced wholesale per upload and
// deleted on promotion.
type UnidentifiedEntry struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DistributorCode int32               `gorm:"column:distributor_code;not null;index:ix_unidentified_entries_distributor"`
	Name            string              `gorm:"column:name;not null"`
	NormalizedName  string              `gorm:"column:normalized_name;not null;index:ix_unidentified_entries_normalized_name"`
	Manufacturer    *string             `gorm:"column:manufacturer"`
	Price           decimal.NullDecimal `gorm:"column:price;type:numeric(12,2)"`
	SeenAt          time.Time           `gorm:"column:seen_at;autoCreateTime"`
}
