package auction

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/medimandi/medimandi-backend/pkg/db/models"
	"github.com/medimandi/medimandi-backend/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// a second connection would see an empty :memory: database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ddl := []string{
		`CREATE TABLE bid_requests (
			id TEXT PRIMARY KEY,
			retailer_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE bids (
			id TEXT PRIMARY KEY,
			bid_request_id TEXT NOT NULL,
			wholesaler_id TEXT NOT NULL,
			discount_percent NUMERIC NOT NULL,
			mrp NUMERIC NOT NULL,
			final_price NUMERIC NOT NULL,
			status TEXT NOT NULL,
			expires_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func seedDBRequest(t *testing.T, repo Repository, createdAt time.Time) *models.BidRequest {
	t.Helper()
	request := &models.BidRequest{
		ID:         uuid.New(),
		RetailerID: uuid.New(),
		ProductID:  uuid.New(),
		Quantity:   10,
		Status:     enums.BidRequestStatusActive,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	if _, err := repo.CreateBidRequest(context.Background(), request); err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return request
}

func seedDBBid(t *testing.T, repo Repository, requestID uuid.UUID, status enums.BidStatus, createdAt time.Time) {
	t.Helper()
	bid := &models.Bid{
		ID:              uuid.New(),
		BidRequestID:    requestID,
		WholesalerID:    uuid.New(),
		DiscountPercent: decimal.RequireFromString("10"),
		MRP:             decimal.RequireFromString("22"),
		FinalPrice:      decimal.RequireFromString("19.8"),
		Status:          status,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	if _, err := repo.CreateBid(context.Background(), bid); err != nil {
		t.Fatalf("seed bid: %v", err)
	}
}

func TestListExpiredActiveEligibility(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now()
	old := now.Add(-2 * time.Hour)
	recent := now.Add(-10 * time.Minute)

	oldQuiet := seedDBRequest(t, repo, old)

	oldStaleBid := seedDBRequest(t, repo, old)
	seedDBBid(t, repo, oldStaleBid.ID, enums.BidStatusPending, old)

	oldRecentBid := seedDBRequest(t, repo, old)
	seedDBBid(t, repo, oldRecentBid.ID, enums.BidStatusPending, recent)

	oldRecentRejected := seedDBRequest(t, repo, old)
	seedDBBid(t, repo, oldRecentRejected.ID, enums.BidStatusRejected, recent)

	fresh := seedDBRequest(t, repo, recent)

	candidates, err := repo.ListExpiredActive(ctx, now.Add(-time.Hour), now.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("ListExpiredActive: %v", err)
	}

	got := map[uuid.UUID]bool{}
	for _, request := range candidates {
		got[request.ID] = true
	}
	if len(got) != 3 {
		t.Fatalf("candidates = %d, want 3: %v", len(got), got)
	}
	if !got[oldQuiet.ID] {
		t.Errorf("old request with no bids should be eligible")
	}
	if !got[oldStaleBid.ID] {
		t.Errorf("old request whose only pending bid is stale should be eligible")
	}
	if !got[oldRecentRejected.ID] {
		t.Errorf("recent rejected bids do not keep a request alive")
	}
	if got[oldRecentBid.ID] {
		t.Errorf("a recent pending bid must keep the request out of the sweep")
	}
	if got[fresh.ID] {
		t.Errorf("a request inside the TTL must not be swept")
	}
}

func TestListExpiredActiveSkipsInactive(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now()
	request := seedDBRequest(t, repo, now.Add(-2*time.Hour))
	if err := repo.SetBidRequestStatus(ctx, request.ID, enums.BidRequestStatusInactive); err != nil {
		t.Fatalf("SetBidRequestStatus: %v", err)
	}

	candidates, err := repo.ListExpiredActive(ctx, now.Add(-time.Hour), now.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("ListExpiredActive: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("candidates = %d, want 0", len(candidates))
	}
}
