package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medimandi/medimandi-backend/api/middleware"
	"github.com/medimandi/medimandi-backend/api/responses"
	"github.com/medimandi/medimandi-backend/api/validators"
	auctionsvc "github.com/medimandi/medimandi-backend/internal/auction"
	settlementsvc "github.com/medimandi/medimandi-backend/internal/settlement"
	pkgerrors "github.com/medimandi/medimandi-backend/pkg/errors"
	"github.com/medimandi/medimandi-backend/pkg/logger"
)

type submitBidRequest struct {
	BidRequestID    string           `json:"bidRequestId" validate:"required,uuid"`
	DiscountPercent decimal.Decimal  `json:"discountPercent" validate:"required"`
	MRP             *decimal.Decimal `json:"mrp,omitempty"`
	FallbackMRP     *decimal.Decimal `json:"fallbackMrp,omitempty"`
	ExpiresAt       *time.Time       `json:"expiresAt,omitempty"`
}

// WholesalerSubmitBid places or replaces the caller's bid on a request.
func WholesalerSubmitBid(svc auctionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}
		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload submitBidRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := uuid.Parse(payload.BidRequestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bid request id"))
			return
		}

		view, err := svc.SubmitBid(r.Context(), auctionsvc.SubmitBidInput{
			WholesalerID:    userID,
			BidRequestID:    requestID,
			DiscountPercent: payload.DiscountPercent,
			MRP:             payload.MRP,
			FallbackMRP:     payload.FallbackMRP,
			ExpiresAt:       payload.ExpiresAt,
			ActorUserID:     userID,
			ActorRole:       middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// WholesalerListBids returns the caller's bids with standing annotations.
func WholesalerListBids(svc auctionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}
		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		views, err := svc.ListWholesalerBids(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// WholesalerCancelBid withdraws one of the caller's pending bids.
func WholesalerCancelBid(svc auctionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}
		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		bidID, err := uuid.Parse(chi.URLParam(r, "bidId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bid id"))
			return
		}
		err = svc.CancelBid(r.Context(), auctionsvc.CancelBidInput{
			WholesalerID: userID,
			BidID:        bidID,
			ActorUserID:  userID,
			ActorRole:    middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

type acceptBidRequest struct {
	PickupPoint *string `json:"pickupPoint,omitempty"`
}

// RetailerAcceptBid settles the bid into an order.
func RetailerAcceptBid(svc settlementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		bidID, err := uuid.Parse(chi.URLParam(r, "bidId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bid id"))
			return
		}

		payload := acceptBidRequest{}
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		view, err := svc.AcceptBid(r.Context(), settlementsvc.AcceptBidInput{
			RetailerID:  userID,
			BidID:       bidID,
			PickupPoint: payload.PickupPoint,
			ActorUserID: userID,
			ActorRole:   middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}
