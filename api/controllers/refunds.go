package controllers

import (
	"net/http"

	"github.com/abdul-hamid-achik/luzimarket-backend/api/responses"
	"github.com/abdul-hamid-achik/luzimarket-backend/api/validators"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/refunds"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
)

type refundRequestBody struct {
	Reason string `json:"reason" validate:"required,min=4,max=500"`
	Actor  string `json:"actor" validate:"max=64"`
}

type refundDecisionBody struct {
	Actor string `json:"actor" validate:"max=64"`
}

func RequestRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body refundRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		actor := body.Actor
		if actor == "" {
			actor = "customer"
		}

		order, err := svc.Request(ctx, refunds.RequestInput{
			OrderID: orderID,
			Reason:  validators.SanitizeString(body.Reason, 500),
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func ApproveRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		actor := decisionActor(r)
		order, err := svc.Approve(ctx, refunds.DecisionInput{OrderID: orderID, Actor: actor})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func RejectRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		actor := decisionActor(r)
		order, err := svc.Reject(ctx, refunds.DecisionInput{OrderID: orderID, Actor: actor})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// decisionActor reads the optional actor from the body. Decision endpoints
// accept an empty body.
func decisionActor(r *http.Request) string {
	var body refundDecisionBody
	if err := validators.DecodeJSONBody(r, &body); err != nil || body.Actor == "" {
		return "admin"
	}
	return validators.SanitizeString(body.Actor, 64)
}
