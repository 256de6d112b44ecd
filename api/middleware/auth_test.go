package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/medimandi/medimandi-backend/pkg/auth"
	"github.com/medimandi/medimandi-backend/pkg/config"
	"github.com/medimandi/medimandi-backend/pkg/enums"
)

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "medimandi-test",
		ExpirationMinutes: 15,
	}
}

func TestAuthSeedsContextFromToken(t *testing.T) {
	cfg := jwtTestConfig()
	userID := uuid.New()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID:         userID,
		Role:           enums.ActorRoleDistributor,
		DistributorKey: "dist-a",
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	var seenUser, seenRole, seenKey string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = UserIDFromContext(r.Context())
		seenRole = RoleFromContext(r.Context())
		seenKey = DistributorKeyFromContext(r.Context())
	})

	req := httptest.NewRequest("GET", "/api/v1/catalog/search", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	Auth(cfg, nil)(next).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if seenUser != userID.String() {
		t.Errorf("user = %q", seenUser)
	}
	if seenRole != "distributor" {
		t.Errorf("role = %q", seenRole)
	}
	if seenKey != "dist-a" {
		t.Errorf("distributor key = %q", seenKey)
	}
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	cfg := jwtTestConfig()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("handler reached without valid token")
	})

	req := httptest.NewRequest("GET", "/api/v1/catalog/search", nil)
	rec := httptest.NewRecorder()
	Auth(cfg, nil)(next).ServeHTTP(rec, req)
	if rec.Code != 401 {
		t.Errorf("missing header: status = %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/catalog/search", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	Auth(cfg, nil)(next).ServeHTTP(rec, req)
	if rec.Code != 401 {
		t.Errorf("bad token: status = %d", rec.Code)
	}
}

func TestRequireRoleBlocksOtherRoles(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/v1/admin/bid-requests", nil)
	req = req.WithContext(WithRole(req.Context(), "retailer"))
	rec := httptest.NewRecorder()
	RequireRole("admin", nil)(next).ServeHTTP(rec, req)
	if rec.Code != 403 {
		t.Errorf("wrong role: status = %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/admin/bid-requests", nil)
	req = req.WithContext(WithRole(req.Context(), "admin"))
	rec = httptest.NewRecorder()
	RequireRole("admin", nil)(next).ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Errorf("matching role: status = %d", rec.Code)
	}
}
