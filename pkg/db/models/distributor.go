package models

import (
	"time"

	"github.com/google/uuid"
)

// Distributor maps an opaque external distributor key to a stable compact
// code used inside catalog membership arrays. Codes are assigned on first use
// and never reused.
type Distributor struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalKey string    `gorm:"column:external_key;not null;uniqueIndex:ux_distributors_external_key"`
	Code        int32     `gorm:"column:code;not null;uniqueIndex:ux_distributors_code"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
