package controllers

import (
	"net/http"

	"github.com/medimandi/medimandi-backend/api/responses"
	auctionsvc "github.com/medimandi/medimandi-backend/internal/auction"
	pkgerrors "github.com/medimandi/medimandi-backend/pkg/errors"
	"github.com/medimandi/medimandi-backend/pkg/logger"
)

// AdminListBidRequests exposes every active request across retailers.
func AdminListBidRequests(svc auctionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}
		views, err := svc.ListAllActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// AdminSweepBidRequests triggers the expiry sweep synchronously. The logic is
// the same one the cron worker runs on its schedule.
func AdminSweepBidRequests(svc auctionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}
		swept, err := svc.ExpireStaleRequests(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"swept": swept})
	}
}
