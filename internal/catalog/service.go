package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medimandi/medimandi-backend/pkg/config"
	pkgerrors "github.com/medimandi/medimandi-backend/pkg/errors"
)

const defaultSearchLimit = 25

// Service exposes catalog reads used by product search and the auction flow.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*ProductView, error)
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

type service struct {
	repo Repository
	cfg  config.ReconcileConfig
}

// NewService builds a catalog service.
func NewService(repo Repository, cfg config.ReconcileConfig) (Service, error) {
	if repo == nil {
		return nil, errors.New("catalog repository required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	view := toProductView(*product)
	return &view, nil
}

// Search ranks catalog products by trigram similarity and drops hits whose
// integer tokens contradict the query, so "drug 500" never surfaces
// "drug 650".
func (s *service) Search(ctx context.Context, query string) ([]SearchResult, error) {
	normalized := Normalize(query)
	if strings.TrimSpace(normalized) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query required")
	}
	threshold := s.cfg.SearchThreshold
	if threshold <= 0 {
		threshold = 0.4
	}
	hits, err := s.repo.Search(ctx, normalized, threshold, defaultSearchLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search catalog")
	}
	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		if !NamesCompatible(normalized, hit.Product.NormalizedName) {
			continue
		}
		results = append(results, SearchResult{
			Product: toProductView(hit.Product),
			Score:   hit.Score,
		})
	}
	return results, nil
}
