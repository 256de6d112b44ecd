package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/medimandi/medimandi-backend/pkg/config"
	"github.com/medimandi/medimandi-backend/pkg/db/models"
	"github.com/medimandi/medimandi-backend/pkg/enums"
	pkgerrors "github.com/medimandi/medimandi-backend/pkg/errors"
	"github.com/medimandi/medimandi-backend/pkg/outbox"

	"github.com/medimandi/medimandi-backend/internal/catalog"
)

type stubTxRunner struct {
	calls int
}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.calls++
	return fn(nil)
}

type stubEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubReconcileRepo struct {
	distributor *models.Distributor
	staged      []models.StagedRow
	exactCount  int64
	fuzzyCount  int64
	unmatched   int64
	candidates  []PromotionCandidate

	effectsBatch    uuid.UUID
	effectsCode     int32
	deletedNames    []string
	deletedBatch    uuid.UUID
	replacedBatchID uuid.UUID
}

func (s *stubReconcileRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubReconcileRepo) EnsureDistributor(ctx context.Context, externalKey string) (*models.Distributor, error) {
	if s.distributor == nil {
		s.distributor = &models.Distributor{ID: uuid.New(), ExternalKey: externalKey, Code: 7}
	}
	return s.distributor, nil
}

func (s *stubReconcileRepo) StageRows(ctx context.Context, rows []models.StagedRow) error {
	s.staged = append(s.staged, rows...)
	return nil
}

func (s *stubReconcileRepo) MarkExactMatches(ctx context.Context, batchID uuid.UUID) (int64, error) {
	return s.exactCount, nil
}

func (s *stubReconcileRepo) MarkFuzzyMatches(ctx context.Context, batchID uuid.UUID, prefixChars int, threshold float64) (int64, error) {
	return s.fuzzyCount, nil
}

func (s *stubReconcileRepo) ApplyMatchEffects(ctx context.Context, batchID uuid.UUID, code int32) error {
	s.effectsBatch = batchID
	s.effectsCode = code
	return nil
}

func (s *stubReconcileRepo) ReplaceUnidentified(ctx context.Context, batchID uuid.UUID, code int32) (int64, error) {
	s.replacedBatchID = batchID
	return s.unmatched, nil
}

func (s *stubReconcileRepo) PromotionCandidates(ctx context.Context) ([]PromotionCandidate, error) {
	return s.candidates, nil
}

func (s *stubReconcileRepo) DeleteUnidentifiedByName(ctx context.Context, name string) error {
	s.deletedNames = append(s.deletedNames, name)
	return nil
}

func (s *stubReconcileRepo) DeleteBatch(ctx context.Context, batchID uuid.UUID) error {
	s.deletedBatch = batchID
	return nil
}

type stubCatalogRepo struct {
	catalog.Repository
	created   []*models.CatalogProduct
	createErr error
	existing  *models.CatalogProduct
	addedTo   []uuid.UUID
	raised    []uuid.UUID
	backfill  []uuid.UUID
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return s }

func (s *stubCatalogRepo) Create(ctx context.Context, product *models.CatalogProduct) (*models.CatalogProduct, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, product)
	return product, nil
}

func (s *stubCatalogRepo) FindByNormalizedName(ctx context.Context, normalized string) (*models.CatalogProduct, error) {
	if s.existing == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.existing, nil
}

func (s *stubCatalogRepo) AddDistributorCode(ctx context.Context, productID uuid.UUID, code int32) error {
	s.addedTo = append(s.addedTo, productID)
	return nil
}

func (s *stubCatalogRepo) RaisePriceIfHigher(ctx context.Context, productID uuid.UUID, price decimal.Decimal) error {
	s.raised = append(s.raised, productID)
	return nil
}

func (s *stubCatalogRepo) BackfillManufacturer(ctx context.Context, productID uuid.UUID, manufacturer string) error {
	s.backfill = append(s.backfill, productID)
	return nil
}

func newTestService(t *testing.T, repo *stubReconcileRepo, catalogRepo *stubCatalogRepo, emitter *stubEmitter) Service {
	t.Helper()
	svc, err := NewService(
		repo,
		catalogRepo,
		&stubTxRunner{},
		emitter,
		config.ReconcileConfig{ChunkSize: 2, BulkThreshold: 0.45, SearchThreshold: 0.4, FuzzyPrefixChars: 5},
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestIngestRejectsHeaderWithoutName(t *testing.T) {
	svc := newTestService(t, &stubReconcileRepo{}, &stubCatalogRepo{}, &stubEmitter{})
	_, err := svc.IngestInventory(context.Background(), IngestInput{
		DistributorKey: "dist-a",
		Header:         []string{"Company", "MRP"},
		Rows:           [][]string{{"Cipla", "10"}},
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestIngestStagesRowsAndReportsCounts(t *testing.T) {
	repo := &stubReconcileRepo{exactCount: 2, fuzzyCount: 1, unmatched: 1}
	emitter := &stubEmitter{}
	svc := newTestService(t, repo, &stubCatalogRepo{}, emitter)

	report, err := svc.IngestInventory(context.Background(), IngestInput{
		DistributorKey: "dist-a",
		Header:         []string{"Medicine Name", "Company", "Rate"},
		Rows: [][]string{
			{"Dolo 650", "Micro Labs", "30.50"},
			{"Crocin Advance", "GSK", "not-a-price"},
			{"", "Cipla", "12"},
			{"Azithral 500", "Alembic", "71"},
			{"ORS Sachet", "", ""},
		},
	})
	if err != nil {
		t.Fatalf("IngestInventory: %v", err)
	}

	// the nameless row is dropped before staging
	if len(repo.staged) != 4 {
		t.Fatalf("staged %d rows, want 4", len(repo.staged))
	}
	if report.RowsTotal != 4 || report.MatchedExact != 2 || report.MatchedFuzzy != 1 || report.Unmatched != 1 {
		t.Errorf("report = %+v", report)
	}
	if repo.staged[0].NormalizedName != "dolo 650" {
		t.Errorf("normalized = %q", repo.staged[0].NormalizedName)
	}
	if !repo.staged[0].Price.Valid || !repo.staged[0].Price.Decimal.Equal(decimal.RequireFromString("30.50")) {
		t.Errorf("price not parsed: %+v", repo.staged[0].Price)
	}
	if repo.staged[1].Price.Valid {
		t.Errorf("unparsable price should stay null")
	}
	if repo.effectsCode != 7 {
		t.Errorf("match effects used code %d, want 7", repo.effectsCode)
	}
	if repo.deletedBatch != report.UploadID {
		t.Errorf("staging batch not cleared")
	}

	var progress, complete int
	for _, event := range emitter.events {
		switch event.EventType {
		case enums.EventUploadProgress:
			progress++
		case enums.EventUploadComplete:
			complete++
		}
	}
	// chunk size 2 over 4 rows
	if progress != 2 {
		t.Errorf("progress events = %d, want 2", progress)
	}
	if complete != 1 {
		t.Errorf("complete events = %d, want 1", complete)
	}
}

func TestIngestPromotesCrossDistributorNames(t *testing.T) {
	manufacturer := "Cipla"
	repo := &stubReconcileRepo{
		candidates: []PromotionCandidate{{
			Name:             "Okacet Cold",
			Manufacturer:     &manufacturer,
			Price:            decimal.NullDecimal{Decimal: decimal.RequireFromString("45"), Valid: true},
			DistributorCodes: pq.Int32Array{3, 9},
		}},
	}
	catalogRepo := &stubCatalogRepo{}
	svc := newTestService(t, repo, catalogRepo, &stubEmitter{})

	report, err := svc.IngestInventory(context.Background(), IngestInput{
		DistributorKey: "dist-b",
		Header:         []string{"Name"},
		Rows:           [][]string{{"Okacet Cold"}},
	})
	if err != nil {
		t.Fatalf("IngestInventory: %v", err)
	}
	if report.Promoted != 1 {
		t.Fatalf("promoted = %d, want 1", report.Promoted)
	}
	if len(catalogRepo.created) != 1 {
		t.Fatalf("created %d products", len(catalogRepo.created))
	}
	product := catalogRepo.created[0]
	if product.NormalizedName != "okacet cold" {
		t.Errorf("normalized = %q", product.NormalizedName)
	}
	if product.Manufacturer == nil || *product.Manufacturer != "Cipla" {
		t.Errorf("manufacturer = %v", product.Manufacturer)
	}
	if len(product.DistributorCodes) != 2 {
		t.Errorf("membership = %v", product.DistributorCodes)
	}
	if len(repo.deletedNames) != 1 || repo.deletedNames[0] != "Okacet Cold" {
		t.Errorf("promoted staging rows not cleared: %v", repo.deletedNames)
	}
}

func TestIngestPromotionCollisionMergesIntoExisting(t *testing.T) {
	repo := &stubReconcileRepo{
		candidates: []PromotionCandidate{{
			Name:             "Dolo 650",
			DistributorCodes: pq.Int32Array{3, 9},
		}},
	}
	existing := &models.CatalogProduct{ID: uuid.New(), NormalizedName: "dolo 650"}
	catalogRepo := &stubCatalogRepo{
		createErr: fmt.Errorf(`duplicate key value violates unique constraint "ux_catalog_products_normalized_name"`),
		existing:  existing,
	}
	svc := newTestService(t, repo, catalogRepo, &stubEmitter{})

	report, err := svc.IngestInventory(context.Background(), IngestInput{
		DistributorKey: "dist-c",
		Header:         []string{"Name"},
		Rows:           [][]string{{"Dolo 650"}},
	})
	if err != nil {
		t.Fatalf("IngestInventory: %v", err)
	}
	if report.Promoted != 1 {
		t.Errorf("promoted = %d, want 1", report.Promoted)
	}
	if len(catalogRepo.addedTo) != 2 {
		t.Errorf("membership merges = %d, want 2", len(catalogRepo.addedTo))
	}
}

func TestIngestEmitsUploadErrorOnFailure(t *testing.T) {
	emitter := &stubEmitter{}
	failing := &failingAfterStageRepo{stubReconcileRepo: &stubReconcileRepo{}}
	svc, err := NewService(failing, &stubCatalogRepo{}, &stubTxRunner{}, emitter,
		config.ReconcileConfig{}, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.IngestInventory(context.Background(), IngestInput{
		DistributorKey: "dist-d",
		Header:         []string{"Name"},
		Rows:           [][]string{{"Dolo 650"}},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	found := false
	for _, event := range emitter.events {
		if event.EventType == enums.EventUploadError {
			found = true
		}
	}
	if !found {
		t.Errorf("upload error event not emitted")
	}
}

type failingAfterStageRepo struct {
	*stubReconcileRepo
}

func (f *failingAfterStageRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *failingAfterStageRepo) MarkExactMatches(ctx context.Context, batchID uuid.UUID) (int64, error) {
	return 0, errors.New("catalog unavailable")
}
