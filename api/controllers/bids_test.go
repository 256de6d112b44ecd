package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medimandi/medimandi-backend/api/middleware"
	auctionsvc "github.com/medimandi/medimandi-backend/internal/auction"
	"github.com/medimandi/medimandi-backend/pkg/enums"
	pkgerrors "github.com/medimandi/medimandi-backend/pkg/errors"
)

type stubAuctionService struct {
	auctionsvc.Service
	submitted *auctionsvc.SubmitBidInput
	cancelled *auctionsvc.CancelBidInput
	listedKey *string
	view      auctionsvc.BidView
	err       error
}

func (s *stubAuctionService) SubmitBid(ctx context.Context, input auctionsvc.SubmitBidInput) (*auctionsvc.BidView, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.submitted = &input
	return &s.view, nil
}

func (s *stubAuctionService) CancelBid(ctx context.Context, input auctionsvc.CancelBidInput) error {
	if s.err != nil {
		return s.err
	}
	s.cancelled = &input
	return nil
}

func (s *stubAuctionService) ListOpenForDistributor(ctx context.Context, distributorKey string, wholesalerID uuid.UUID) ([]auctionsvc.OpenRequestView, error) {
	s.listedKey = &distributorKey
	if distributorKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "no distributor relationship on this account")
	}
	return []auctionsvc.OpenRequestView{}, nil
}

func authedContext(ctx context.Context, userID uuid.UUID, role enums.ActorRole) context.Context {
	ctx = middleware.WithUserID(ctx, userID.String())
	return middleware.WithRole(ctx, string(role))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestWholesalerSubmitBid(t *testing.T) {
	svc := &stubAuctionService{view: auctionsvc.BidView{ID: uuid.New()}}
	handler := WholesalerSubmitBid(svc, nil)

	wholesaler := uuid.New()
	requestID := uuid.New()
	body := `{"bidRequestId":"` + requestID.String() + `","discountPercent":"12.5"}`
	req := httptest.NewRequest("POST", "/api/v1/wholesaler/bids", strings.NewReader(body))
	req = req.WithContext(authedContext(req.Context(), wholesaler, enums.ActorRoleWholesaler))
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != 201 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.submitted == nil {
		t.Fatalf("service not called")
	}
	if svc.submitted.WholesalerID != wholesaler || svc.submitted.BidRequestID != requestID {
		t.Errorf("input = %+v", svc.submitted)
	}
	if !svc.submitted.DiscountPercent.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("discount = %s", svc.submitted.DiscountPercent)
	}
}

func TestWholesalerSubmitBidRejectsBadBody(t *testing.T) {
	svc := &stubAuctionService{}
	handler := WholesalerSubmitBid(svc, nil)

	req := httptest.NewRequest("POST", "/api/v1/wholesaler/bids", strings.NewReader(`{"bidRequestId":"not-a-uuid","discountPercent":"5"}`))
	req = req.WithContext(authedContext(req.Context(), uuid.New(), enums.ActorRoleWholesaler))
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.submitted != nil {
		t.Errorf("service called despite invalid body")
	}
}

func TestWholesalerCancelBid(t *testing.T) {
	svc := &stubAuctionService{}
	handler := WholesalerCancelBid(svc, nil)

	wholesaler := uuid.New()
	bidID := uuid.New()
	req := httptest.NewRequest("DELETE", "/api/v1/wholesaler/bids/"+bidID.String(), nil)
	req = req.WithContext(authedContext(req.Context(), wholesaler, enums.ActorRoleWholesaler))
	req = withURLParam(req, "bidId", bidID.String())
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.cancelled == nil {
		t.Fatalf("service not called")
	}
	if svc.cancelled.WholesalerID != wholesaler || svc.cancelled.BidID != bidID {
		t.Errorf("input = %+v", svc.cancelled)
	}
}

func TestWholesalerOpenBidRequestsScopesByTokenKey(t *testing.T) {
	svc := &stubAuctionService{}
	handler := WholesalerOpenBidRequests(svc, nil)

	// the query string never picks the scope; only the token's key does
	req := httptest.NewRequest("GET", "/api/v1/wholesaler/bid-requests/open?distributorCode=999", nil)
	ctx := authedContext(req.Context(), uuid.New(), enums.ActorRoleWholesaler)
	ctx = middleware.WithDistributorKey(ctx, "dist-key-7")
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.listedKey == nil || *svc.listedKey != "dist-key-7" {
		t.Errorf("distributor key = %v, want the token's", svc.listedKey)
	}
}

func TestWholesalerOpenBidRequestsWithoutKeyIsForbidden(t *testing.T) {
	svc := &stubAuctionService{}
	handler := WholesalerOpenBidRequests(svc, nil)

	req := httptest.NewRequest("GET", "/api/v1/wholesaler/bid-requests/open", nil)
	req = req.WithContext(authedContext(req.Context(), uuid.New(), enums.ActorRoleWholesaler))
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != 403 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestWholesalerSubmitBidRequiresUserContext(t *testing.T) {
	handler := WholesalerSubmitBid(&stubAuctionService{}, nil)
	req := httptest.NewRequest("POST", "/api/v1/wholesaler/bids", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != 401 {
		t.Fatalf("status = %d", rec.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Error.Code != "UNAUTHORIZED" {
		t.Errorf("code = %q", envelope.Error.Code)
	}
}
