package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAuctionMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_auction_tables.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no auction migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS bid_requests",
		"CREATE TABLE IF NOT EXISTS bids",
		"CHECK (quantity > 0)",
		"CHECK (discount_percent >= 0 AND discount_percent <= 100)",
		"WHERE status = 'pending'",
		"DROP TABLE IF EXISTS bids",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCatalogMigrationUsesTrigramIndex(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_catalog_products.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no catalog migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CONSTRAINT ux_catalog_products_normalized_name UNIQUE (normalized_name)",
		"USING gin (normalized_name gin_trgm_ops)",
		"distributor_codes INTEGER[] NOT NULL DEFAULT ARRAY[]::INTEGER[]",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
