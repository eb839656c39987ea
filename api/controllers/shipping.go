package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/abdul-hamid-achik/luzimarket-backend/api/responses"
	"github.com/abdul-hamid-achik/luzimarket-backend/api/validators"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/shipping"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	pkgerrors "github.com/abdul-hamid-achik/luzimarket-backend/pkg/errors"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
)

type purchaseLabelRequest struct {
	Carrier        string          `json:"carrier" validate:"required"`
	TrackingNumber string          `json:"tracking_number" validate:"required,min=6,max=40"`
	LabelURL       string          `json:"label_url" validate:"required,url"`
	Cost           decimal.Decimal `json:"cost"`
	Dimensions     string          `json:"dimensions" validate:"max=64"`
}

func PurchaseShippingLabel(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req purchaseLabelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		carrier, err := enums.ParseCarrier(req.Carrier)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown carrier").
					WithDetails(map[string]string{"carrier": req.Carrier}))
			return
		}

		label, err := svc.PurchaseLabel(ctx, nil, shipping.PurchaseLabelInput{
			OrderID:        orderID,
			Carrier:        carrier,
			TrackingNumber: req.TrackingNumber,
			LabelURL:       req.LabelURL,
			Cost:           req.Cost,
			Dimensions:     req.Dimensions,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, label)
	}
}

func ListShippingLabels(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		labels, err := svc.FindLabels(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, labels)
	}
}
