package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/medimandi/medimandi-backend/pkg/config"
	dbpkg "github.com/medimandi/medimandi-backend/pkg/db"
	"github.com/medimandi/medimandi-backend/pkg/db/models"
	"github.com/medimandi/medimandi-backend/pkg/enums"
	pkgerrors "github.com/medimandi/medimandi-backend/pkg/errors"
	"github.com/medimandi/medimandi-backend/pkg/logger"
	"github.com/medimandi/medimandi-backend/pkg/metrics"
	"github.com/medimandi/medimandi-backend/pkg/outbox"
	"github.com/medimandi/medimandi-backend/pkg/outbox/payloads"

	"github.com/medimandi/medimandi-backend/internal/catalog"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// IngestInput is one distributor upload: a header row plus raw data rows.
type IngestInput struct {
	DistributorKey string
	Header         []string
	Rows           [][]string
	ActorUserID    uuid.UUID
	ActorRole      string
}

// Report summarizes one reconciliation run.
type Report struct {
	UploadID     uuid.UUID `json:"uploadId"`
	RowsTotal    int       `json:"rowsTotal"`
	MatchedExact int       `json:"matchedExact"`
	MatchedFuzzy int       `json:"matchedFuzzy"`
	Unmatched    int       `json:"unmatched"`
	Promoted     int       `json:"promoted"`
}

// Service runs the reconciliation pipeline for distributor inventory uploads.
type Service interface {
	IngestInventory(ctx context.Context, input IngestInput) (*Report, error)
}

type service struct {
	repo        Repository
	catalogRepo catalog.Repository
	tx          txRunner
	outbox      outbox.Emitter
	cfg         config.ReconcileConfig
	logg        *logger.Logger
	metrics     *metrics.ReconcileMetrics
}

// NewService builds the reconcile service with its required dependencies.
func NewService(
	repo Repository,
	catalogRepo catalog.Repository,
	tx txRunner,
	emitter outbox.Emitter,
	cfg config.ReconcileConfig,
	logg *logger.Logger,
	m *metrics.ReconcileMetrics,
) (Service, error) {
	if repo == nil {
		return nil, errors.New("reconcile repository required")
	}
	if catalogRepo == nil {
		return nil, errors.New("catalog repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	return &service{
		repo:        repo,
		catalogRepo: catalogRepo,
		tx:          tx,
		outbox:      emitter,
		cfg:         cfg,
		logg:        logg,
		metrics:     m,
	}, nil
}

// IngestInventory stages, matches, and promotes one upload inside a single
// transaction. Concurrent uploads from other distributors never observe each
// other's staging rows because every statement is scoped to the batch id.
func (s *service) IngestInventory(ctx context.Context, input IngestInput) (*Report, error) {
	if strings.TrimSpace(input.DistributorKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "distributor key required")
	}
	if len(input.Rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload contains no rows")
	}

	columns, err := MapHeader(input.Header)
	if err != nil {
		return nil, err
	}

	uploadID := uuid.New()
	staged := s.buildStagedRows(uploadID, columns, input.Rows)
	if len(staged) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no rows with a product name")
	}

	started := time.Now()
	actor := &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole}
	report := &Report{UploadID: uploadID, RowsTotal: len(staged)}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)

		distributor, err := repo.EnsureDistributor(ctx, input.DistributorKey)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve distributor")
		}

		if err := s.stageChunked(ctx, tx, repo, uploadID, input.DistributorKey, staged, actor); err != nil {
			return err
		}

		exact, err := repo.MarkExactMatches(ctx, uploadID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "exact match pass")
		}
		report.MatchedExact = int(exact)

		prefixChars := s.cfg.FuzzyPrefixChars
		if prefixChars <= 0 {
			prefixChars = 5
		}
		threshold := s.cfg.BulkThreshold
		if threshold <= 0 {
			threshold = 0.45
		}
		fuzzy, err := repo.MarkFuzzyMatches(ctx, uploadID, prefixChars, threshold)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fuzzy match pass")
		}
		report.MatchedFuzzy = int(fuzzy)

		if err := repo.ApplyMatchEffects(ctx, uploadID, distributor.Code); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply match effects")
		}

		unmatched, err := repo.ReplaceUnidentified(ctx, uploadID, distributor.Code)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace staged unmatched")
		}
		report.Unmatched = int(unmatched)

		promoted, err := s.promote(ctx, repo, catalogRepo)
		if err != nil {
			return err
		}
		report.Promoted = promoted

		if err := repo.DeleteBatch(ctx, uploadID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear staging batch")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUploadComplete,
			AggregateType: enums.AggregateUpload,
			AggregateID:   uploadID,
			Actor:         actor,
			Data: payloads.UploadCompleteEvent{
				UploadID:       uploadID,
				DistributorKey: input.DistributorKey,
				RowsTotal:      report.RowsTotal,
				MatchedExact:   report.MatchedExact,
				MatchedFuzzy:   report.MatchedFuzzy,
				Unmatched:      report.Unmatched,
				Promoted:       report.Promoted,
				CompletedAt:    time.Now(),
			},
		})
	})
	if err != nil {
		s.emitUploadError(ctx, uploadID, input.DistributorKey, actor, err)
		return nil, err
	}

	s.metrics.AddRows("exact", report.MatchedExact)
	s.metrics.AddRows("fuzzy", report.MatchedFuzzy)
	s.metrics.AddRows("unmatched", report.Unmatched)
	s.metrics.ObserveUpload(time.Since(started))

	if s.logg != nil {
		fields := map[string]any{
			"upload_id":     uploadID.String(),
			"rows_total":    report.RowsTotal,
			"matched_exact": report.MatchedExact,
			"matched_fuzzy": report.MatchedFuzzy,
			"unmatched":     report.Unmatched,
			"promoted":      report.Promoted,
		}
		logCtx := s.logg.WithDistributorKey(s.logg.WithFields(ctx, fields), input.DistributorKey)
		s.logg.Info(logCtx, "inventory upload reconciled")
	}
	return report, nil
}

func (s *service) buildStagedRows(uploadID uuid.UUID, columns ColumnMap, rows [][]string) []models.StagedRow {
	staged := make([]models.StagedRow, 0, len(rows))
	for i, row := range rows {
		name := columns.Cell(row, FieldName)
		normalized := catalog.Normalize(name)
		if normalized == "" {
			continue
		}
		entry := models.StagedRow{
			BatchID:        uploadID,
			RowNumber:      i,
			Name:           name,
			NormalizedName: normalized,
		}
		if manufacturer := columns.Cell(row, FieldManufacturer); manufacturer != "" {
			entry.Manufacturer = &manufacturer
		}
		if raw := columns.Cell(row, FieldPrice); raw != "" {
			if price, err := decimal.NewFromString(raw); err == nil && !price.IsNegative() {
				entry.Price = decimal.NullDecimal{Decimal: price, Valid: true}
			}
		}
		if batchNo := columns.Cell(row, FieldBatch); batchNo != "" {
			entry.BatchNo = &batchNo
		}
		if expiry := columns.Cell(row, FieldExpiry); expiry != "" {
			entry.Expiry = &expiry
		}
		staged = append(staged, entry)
	}
	return staged
}

func (s *service) stageChunked(
	ctx context.Context,
	tx *gorm.DB,
	repo Repository,
	uploadID uuid.UUID,
	distributorKey string,
	staged []models.StagedRow,
	actor *outbox.ActorRef,
) error {
	chunkSize := s.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 500
	}
	for start := 0; start < len(staged); start += chunkSize {
		end := start + chunkSize
		if end > len(staged) {
			end = len(staged)
		}
		if err := repo.StageRows(ctx, staged[start:end]); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stage upload rows")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventUploadProgress,
			AggregateType: enums.AggregateUpload,
			AggregateID:   uploadID,
			Actor:         actor,
			Data: payloads.UploadProgressEvent{
				UploadID:       uploadID,
				DistributorKey: distributorKey,
				RowsProcessed:  end,
				RowsTotal:      len(staged),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
	}
	return nil
}

// promote creates catalog entries for unmatched names staged by more than
// one distributor. A normalized-name collision falls back to merging into
// the existing product instead of failing the upload.
func (s *service) promote(ctx context.Context, repo Repository, catalogRepo catalog.Repository) (int, error) {
	candidates, err := repo.PromotionCandidates(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "collect promotion candidates")
	}
	promoted := 0
	for _, candidate := range candidates {
		manufacturer := "Unknown"
		if candidate.Manufacturer != nil && *candidate.Manufacturer != "" {
			manufacturer = *candidate.Manufacturer
		}
		product := &models.CatalogProduct{
			Name:             candidate.Name,
			NormalizedName:   catalog.Normalize(candidate.Name),
			Manufacturer:     &manufacturer,
			MRP:              candidate.Price,
			DistributorCodes: candidate.DistributorCodes,
		}
		if _, err := catalogRepo.Create(ctx, product); err != nil {
			if !dbpkg.IsUniqueViolation(err, "ux_catalog_products_normalized_name") {
				return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create promoted product")
			}
			if err := s.mergeIntoExisting(ctx, catalogRepo, product); err != nil {
				return 0, err
			}
		}
		if err := repo.DeleteUnidentifiedByName(ctx, candidate.Name); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear promoted name")
		}
		promoted++
	}
	return promoted, nil
}

func (s *service) mergeIntoExisting(ctx context.Context, catalogRepo catalog.Repository, product *models.CatalogProduct) error {
	existing, err := catalogRepo.FindByNormalizedName(ctx, product.NormalizedName)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load colliding product")
	}
	for _, code := range product.DistributorCodes {
		if err := catalogRepo.AddDistributorCode(ctx, existing.ID, code); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge distributor code")
		}
	}
	if product.MRP.Valid {
		if err := catalogRepo.RaisePriceIfHigher(ctx, existing.ID, product.MRP.Decimal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge price")
		}
	}
	if product.Manufacturer != nil && *product.Manufacturer != "Unknown" {
		if err := catalogRepo.BackfillManufacturer(ctx, existing.ID, *product.Manufacturer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge manufacturer")
		}
	}
	return nil
}

// emitUploadError records the failure in its own transaction so the event
// survives the rolled-back ingest.
func (s *service) emitUploadError(ctx context.Context, uploadID uuid.UUID, distributorKey string, actor *outbox.ActorRef, cause error) {
	emitErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUploadError,
			AggregateType: enums.AggregateUpload,
			AggregateID:   uploadID,
			Actor:         actor,
			Data: payloads.UploadErrorEvent{
				UploadID:       uploadID,
				DistributorKey: distributorKey,
				Reason:         cause.Error(),
			},
		})
	})
	if emitErr != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "upload_id", uploadID.String()), "emit upload error event", emitErr)
	}
}
