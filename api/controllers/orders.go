package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/luzimarket-backend/api/responses"
	"github.com/abdul-hamid-achik/luzimarket-backend/api/validators"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/orders"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	pkgerrors "github.com/abdul-hamid-achik/luzimarket-backend/pkg/errors"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/types"
)

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderId")
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id")
	}
	return orderID, nil
}

// CreateOrderPaymentIntent hands the storefront a Stripe client secret for a
// pending order.
func CreateOrderPaymentIntent(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.CreatePaymentIntent(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type shipOrderRequest struct {
	Carrier               string     `json:"carrier" validate:"required"`
	TrackingNumber        string     `json:"tracking_number" validate:"required,min=6,max=40"`
	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date"`
}

func ShipOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req shipOrderRequest
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

		order, err := svc.Ship(ctx, orders.ShipInput{
			OrderID:               orderID,
			Carrier:               carrier,
			TrackingNumber:        req.TrackingNumber,
			EstimatedDeliveryDate: req.EstimatedDeliveryDate,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type trackingEventRequest struct {
	Status    string     `json:"status" validate:"required,max=64"`
	Location  string     `json:"location" validate:"max=128"`
	Note      string     `json:"note" validate:"max=256"`
	Timestamp *time.Time `json:"timestamp"`
}

// AppendOrderTracking records a carrier tracking update. An update whose
// status reads delivered also closes the order.
func AppendOrderTracking(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req trackingEventRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		event := types.TrackingEvent{
			Status:   validators.SanitizeString(req.Status, 64),
			Location: validators.SanitizeString(req.Location, 128),
			Note:     validators.SanitizeString(req.Note, 256),
		}
		if req.Timestamp != nil {
			event.Timestamp = req.Timestamp.UTC()
		}

		order, err := svc.AppendTrackingEvent(ctx, orderID, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func DeliverOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.MarkDelivered(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.FindOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
