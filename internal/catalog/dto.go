package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medimandi/medimandi-backend/pkg/db/models"
)

// ProductView is the catalog product shape returned to API consumers.
type ProductView struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	NormalizedName   string           `json:"normalizedName"`
	Manufacturer     string           `json:"manufacturer"`
	MRP              *decimal.Decimal `json:"mrp,omitempty"`
	DistributorCount int              `json:"distributorCount"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// SearchResult is a scored catalog hit.
type SearchResult struct {
	Product ProductView `json:"product"`
	Score   float64     `json:"score"`
}

func toProductView(p models.CatalogProduct) ProductView {
	manufacturer := "Unknown"
	if p.Manufacturer != nil && *p.Manufacturer != "" {
		manufacturer = *p.Manufacturer
	}
	view := ProductView{
		ID:               p.ID,
		Name:             p.Name,
		NormalizedName:   p.NormalizedName,
		Manufacturer:     manufacturer,
		DistributorCount: len(p.DistributorCodes),
		UpdatedAt:        p.UpdatedAt,
	}
	if p.MRP.Valid {
		mrp := p.MRP.Decimal
		view.MRP = &mrp
	}
	return view
}
