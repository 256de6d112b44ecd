package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/medimandi/medimandi-backend/api/middleware"
	"github.com/medimandi/medimandi-backend/api/responses"
	"github.com/medimandi/medimandi-backend/api/validators"
	reconcilesvc "github.com/medimandi/medimandi-backend/internal/reconcile"
	pkgerrors "github.com/medimandi/medimandi-backend/pkg/errors"
	"github.com/medimandi/medimandi-backend/pkg/logger"
)

type inventoryUploadRequest struct {
	Header []string   `json:"header" validate:"required,min=1"`
	Rows   [][]string `json:"rows" validate:"required,min=1"`
}

// DistributorInventoryUpload ingests one parsed inventory sheet and runs the
// full reconciliation pipeline synchronously.
func DistributorInventoryUpload(svc reconcilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		distributorKey := middleware.DistributorKeyFromContext(r.Context())
		if distributorKey == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "distributor identity missing"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload inventoryUploadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.IngestInventory(r.Context(), reconcilesvc.IngestInput{
			DistributorKey: distributorKey,
			Header:         payload.Header,
			Rows:           payload.Rows,
			ActorUserID:    userID,
			ActorRole:      middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
