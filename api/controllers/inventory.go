package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/luzimarket-backend/api/responses"
	"github.com/abdul-hamid-achik/luzimarket-backend/api/validators"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/inventory"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	pkgerrors "github.com/abdul-hamid-achik/luzimarket-backend/pkg/errors"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
)

type upsertInventoryAlertRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Type      string `json:"type" validate:"required"`
	Threshold *int   `json:"threshold"`
	IsActive  *bool  `json:"is_active"`
}

// UpsertInventoryAlert lets a vendor configure the threshold watch for one of
// their products. Repeated calls for the same product and type reconfigure
// the existing watch.
func UpsertInventoryAlert(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		vendorID, err := vendorIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req upsertInventoryAlertRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}
		alertType, err := enums.ParseInventoryAlertType(req.Type)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown alert type").
					WithDetails(map[string]string{"type": req.Type}))
			return
		}

		alert, err := svc.UpsertAlert(ctx, inventory.UpsertAlertInput{
			VendorID:  vendorID,
			ProductID: productID,
			Type:      alertType,
			Threshold: req.Threshold,
			IsActive:  req.IsActive,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, alert)
	}
}

func ListInventoryAlerts(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		vendorID, err := vendorIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		alerts, err := svc.ListAlerts(ctx, vendorID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, alerts)
	}
}
