package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abdul-hamid-achik/luzimarket-backend/api/controllers"
	webhookcontrollers "github.com/abdul-hamid-achik/luzimarket-backend/api/controllers/webhooks"
	"github.com/abdul-hamid-achik/luzimarket-backend/api/middleware"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/inventory"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/notifications"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/orders"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/refunds"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/shipping"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/config"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
)

// Pinger reports dependency liveness for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            Pinger
	Redis         Pinger
	Orders        orders.Service
	Refunds       refunds.Service
	Shipping      shipping.Service
	Inventory     inventory.Service
	Notifications notifications.Service
	StripeWebhook webhookcontrollers.StripeWebhookService
	StripeClient  interface{ SigningSecret() string }
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	logg := deps.Logger

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, logg, deps.DB, deps.Redis))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeClient, logg))
	})

	r.Route("/api/v1/orders/{orderId}", func(r chi.Router) {
		r.Get("/", controllers.GetOrder(deps.Orders, logg))
		r.Post("/payment-intent", controllers.CreateOrderPaymentIntent(deps.Orders, logg))
		r.Post("/ship", controllers.ShipOrder(deps.Orders, logg))
		r.Post("/tracking", controllers.AppendOrderTracking(deps.Orders, logg))
		r.Post("/deliver", controllers.DeliverOrder(deps.Orders, logg))
		r.Post("/refund-request", controllers.RequestRefund(deps.Refunds, logg))
		r.Post("/refund-approve", controllers.ApproveRefund(deps.Refunds, logg))
		r.Post("/refund-reject", controllers.RejectRefund(deps.Refunds, logg))
		r.Post("/shipping-label", controllers.PurchaseShippingLabel(deps.Shipping, logg))
		r.Get("/shipping-labels", controllers.ListShippingLabels(deps.Shipping, logg))
	})

	r.Route("/api/v1/vendors/{vendorId}/inventory-alerts", func(r chi.Router) {
		r.Get("/", controllers.ListInventoryAlerts(deps.Inventory, logg))
		r.Put("/", controllers.UpsertInventoryAlert(deps.Inventory, logg))
	})

	r.Route("/api/v1/vendors/{vendorId}/notifications", func(r chi.Router) {
		r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
		r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
	})

	return r
}
