package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// CatalogProduct is the canonical product shared across all distributors.
// NormalizedName is unique within the catalog; DistributorCodes is the set of
// compact distributor codes with inventory for the product.
type CatalogProduct struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string              `gorm:"column:name;not null"`
	NormalizedName   string              `gorm:"column:normalized_name;not null;uniqueIndex:ux_catalog_products_normalized_name"`
	Manufacturer     *string             `gorm:"column:manufacturer"`
	MRP              decimal.NullDecimal `gorm:"column:mrp;type:numeric(12,2)"`
	DistributorCodes pq.Int32Array       `gorm:"column:distributor_codes;type:integer[];not null;default:ARRAY[]::integer[]"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// HasManufacturer reports whether the catalog holds a usable manufacturer value.
func (p CatalogProduct) HasManufacturer() bool {
	return p.Manufacturer != nil && *p.Manufacturer != "" && *p.Manufacturer != "Unknown"
}
