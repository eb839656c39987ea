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
	"gorm.io/gorm"

	"github.com/abdul-hamid-achik/luzimarket-backend/internal/inventory"
	internalorders "github.com/abdul-hamid-achik/luzimarket-backend/internal/orders"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/notifications"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/refunds"
	"github.com/abdul-hamid-achik/luzimarket-backend/internal/shipping"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db/models"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/types"
)

func requestWithParams(method, target, body string, params map[string]string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	routeCtx := chi.NewRouteContext()
	for key, value := range params {
		routeCtx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

type stubOrdersService struct {
	order        *models.Order
	intentResult *internalorders.PaymentIntentResult
	err          error
	shipInput    internalorders.ShipInput
	tracking     []types.TrackingEvent
	delivered    int
}

func (s *stubOrdersService) CreatePaymentIntent(ctx context.Context, orderID uuid.UUID) (*internalorders.PaymentIntentResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.intentResult, nil
}

func (s *stubOrdersService) MarkPaid(ctx context.Context, tx *gorm.DB, input internalorders.MarkPaidInput) (*models.Order, bool, error) {
	panic("not used")
}

func (s *stubOrdersService) MarkPaymentFailed(ctx context.Context, tx *gorm.DB, paymentIntentID string) (*models.Order, error) {
	panic("not used")
}

func (s *stubOrdersService) Ship(ctx context.Context, input internalorders.ShipInput) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.shipInput = input
	return s.order, nil
}

func (s *stubOrdersService) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.delivered++
	return s.order, nil
}

func (s *stubOrdersService) AppendTrackingEvent(ctx context.Context, orderID uuid.UUID, event types.TrackingEvent) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.tracking = append(s.tracking, event)
	return s.order, nil
}

func (s *stubOrdersService) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

func testOrder() *models.Order {
	return &models.Order{
		ID:          uuid.New(),
		OrderNumber: "LM-2026-0042",
		VendorID:    uuid.New(),
		Status:      enums.OrderStatusPaid,
	}
}

func TestCreateOrderPaymentIntent(t *testing.T) {
	order := testOrder()
	svc := &stubOrdersService{intentResult: &internalorders.PaymentIntentResult{
		PaymentIntentID: "pi_123",
		ClientSecret:    "pi_123_secret",
	}}
	handler := CreateOrderPaymentIntent(svc, nil)

	req := requestWithParams(http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/payment-intent", "",
		map[string]string{"orderId": order.ID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data internalorders.PaymentIntentResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.PaymentIntentID != "pi_123" {
		t.Fatalf("unexpected payment intent %q", envelope.Data.PaymentIntentID)
	}
}

func TestCreateOrderPaymentIntentInvalidID(t *testing.T) {
	handler := CreateOrderPaymentIntent(&stubOrdersService{}, nil)
	req := requestWithParams(http.MethodPost, "/api/v1/orders/not-a-uuid/payment-intent", "",
		map[string]string{"orderId": "not-a-uuid"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestShipOrder(t *testing.T) {
	order := testOrder()
	svc := &stubOrdersService{order: order}
	handler := ShipOrder(svc, nil)

	body := `{"carrier":"dhl","tracking_number":"1234567890"}`
	req := requestWithParams(http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/ship", body,
		map[string]string{"orderId": order.ID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.shipInput.TrackingNumber != "1234567890" {
		t.Fatalf("unexpected tracking number %q", svc.shipInput.TrackingNumber)
	}
	if svc.shipInput.Carrier != enums.CarrierDHL {
		t.Fatalf("unexpected carrier %s", svc.shipInput.Carrier)
	}
}

func TestShipOrderUnknownCarrier(t *testing.T) {
	order := testOrder()
	svc := &stubOrdersService{order: order}
	handler := ShipOrder(svc, nil)

	body := `{"carrier":"pigeon","tracking_number":"1234567890"}`
	req := requestWithParams(http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/ship", body,
		map[string]string{"orderId": order.ID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unknown carrier") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestAppendOrderTracking(t *testing.T) {
	order := testOrder()
	svc := &stubOrdersService{order: order}
	handler := AppendOrderTracking(svc, nil)

	body := `{"status":"in_transit","location":"CDMX","note":"En camino"}`
	req := requestWithParams(http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/tracking", body,
		map[string]string{"orderId": order.ID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(svc.tracking) != 1 || svc.tracking[0].Status != "in_transit" {
		t.Fatalf("unexpected tracking events %+v", svc.tracking)
	}
}

func TestDeliverOrder(t *testing.T) {
	order := testOrder()
	svc := &stubOrdersService{order: order}
	handler := DeliverOrder(svc, nil)

	req := requestWithParams(http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/deliver", "",
		map[string]string{"orderId": order.ID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.delivered != 1 {
		t.Fatalf("expected one delivery, got %d", svc.delivered)
	}
}

type stubShippingService struct {
	label     *models.ShippingLabel
	labels    []models.ShippingLabel
	err       error
	purchased shipping.PurchaseLabelInput
}

func (s *stubShippingService) ValidateTrackingNumber(number string, carrier enums.Carrier) error {
	return nil
}

func (s *stubShippingService) TrackingURL(number string, carrier enums.Carrier) string {
	return ""
}

func (s *stubShippingService) PurchaseLabel(ctx context.Context, tx *gorm.DB, input shipping.PurchaseLabelInput) (*models.ShippingLabel, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.purchased = input
	return s.label, nil
}

func (s *stubShippingService) FindLabels(ctx context.Context, orderID uuid.UUID) ([]models.ShippingLabel, error) {
	return s.labels, s.err
}

func TestPurchaseShippingLabel(t *testing.T) {
	orderID := uuid.New()
	svc := &stubShippingService{label: &models.ShippingLabel{OrderID: orderID}}
	handler := PurchaseShippingLabel(svc, nil)

	body := `{"carrier":"estafeta","tracking_number":"EST1234567890","label_url":"https://labels.example.com/est.pdf","cost":189.90,"dimensions":"30x20x15 cm"}`
	req := requestWithParams(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/shipping-label", body,
		map[string]string{"orderId": orderID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.purchased.Carrier != enums.CarrierEstafeta {
		t.Fatalf("unexpected carrier %s", svc.purchased.Carrier)
	}
	if !svc.purchased.Cost.Equal(decimal.NewFromFloat(189.90)) {
		t.Fatalf("unexpected cost %s", svc.purchased.Cost)
	}
	if svc.purchased.Dimensions != "30x20x15 cm" {
		t.Fatalf("unexpected dimensions %q", svc.purchased.Dimensions)
	}
}

func TestPurchaseShippingLabelMissingURL(t *testing.T) {
	orderID := uuid.New()
	svc := &stubShippingService{}
	handler := PurchaseShippingLabel(svc, nil)

	body := `{"carrier":"estafeta","tracking_number":"EST1234567890"}`
	req := requestWithParams(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/shipping-label", body,
		map[string]string{"orderId": orderID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

type stubRefundsService struct {
	order     *models.Order
	err       error
	requested refunds.RequestInput
	approved  refunds.DecisionInput
	rejected  refunds.DecisionInput
}

func (s *stubRefundsService) Request(ctx context.Context, input refunds.RequestInput) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.requested = input
	return s.order, nil
}

func (s *stubRefundsService) Approve(ctx context.Context, input refunds.DecisionInput) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.approved = input
	return s.order, nil
}

func (s *stubRefundsService) Reject(ctx context.Context, input refunds.DecisionInput) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.rejected = input
	return s.order, nil
}

func (s *stubRefundsService) ConfirmRefund(ctx context.Context, input refunds.ResolveInput) (*models.Order, error) {
	panic("not used")
}

func (s *stubRefundsService) FailRefund(ctx context.Context, input refunds.ResolveInput) (*models.Order, error) {
	panic("not used")
}

func (s *stubRefundsService) Resume(ctx context.Context, orderID uuid.UUID, stripeRefundID string) (*models.Order, error) {
	panic("not used")
}

func TestRequestRefund(t *testing.T) {
	order := testOrder()
	svc := &stubRefundsService{order: order}
	handler := RequestRefund(svc, nil)

	body := `{"reason":"Ya no lo necesito"}`
	req := requestWithParams(http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/refund-request", body,
		map[string]string{"orderId": order.ID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.requested.Reason != "Ya no lo necesito" {
		t.Fatalf("unexpected reason %q", svc.requested.Reason)
	}
	if svc.requested.Actor != "customer" {
		t.Fatalf("unexpected actor %q", svc.requested.Actor)
	}
}

func TestRequestRefundMissingReason(t *testing.T) {
	svc := &stubRefundsService{order: testOrder()}
	handler := RequestRefund(svc, nil)

	orderID := uuid.New()
	req := requestWithParams(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/refund-request", `{}`,
		map[string]string{"orderId": orderID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestApproveRefund(t *testing.T) {
	order := testOrder()
	svc := &stubRefundsService{order: order}
	handler := ApproveRefund(svc, nil)

	req := requestWithParams(http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/refund-approve", "",
		map[string]string{"orderId": order.ID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.approved.OrderID != order.ID {
		t.Fatalf("unexpected order id %s", svc.approved.OrderID)
	}
	if svc.approved.Actor != "admin" {
		t.Fatalf("unexpected actor %q", svc.approved.Actor)
	}
}

func TestRejectRefund(t *testing.T) {
	order := testOrder()
	svc := &stubRefundsService{order: order}
	handler := RejectRefund(svc, nil)

	req := requestWithParams(http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/refund-reject", `{"actor":"vendor-admin"}`,
		map[string]string{"orderId": order.ID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.rejected.Actor != "vendor-admin" {
		t.Fatalf("unexpected actor %q", svc.rejected.Actor)
	}
}

type stubNotificationsService struct {
	result  *notifications.ListResult
	err     error
	read    []uuid.UUID
	readAll int
}

func (s *stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubNotificationsService) MarkRead(ctx context.Context, vendorID, notificationID uuid.UUID) error {
	s.read = append(s.read, notificationID)
	return s.err
}

func (s *stubNotificationsService) MarkAllRead(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	s.readAll++
	return 3, s.err
}

func (s *stubNotificationsService) Create(ctx context.Context, tx *gorm.DB, input notifications.CreateInput) (*models.Notification, error) {
	panic("not used")
}

func (s *stubNotificationsService) NotifyInventoryAlert(ctx context.Context, product models.Product, alertType enums.InventoryAlertType) error {
	panic("not used")
}

func TestListNotifications(t *testing.T) {
	vendorID := uuid.New()
	svc := &stubNotificationsService{result: &notifications.ListResult{
		Items: []models.Notification{{ID: uuid.New(), VendorID: vendorID, Title: "Pago recibido"}},
	}}
	handler := ListNotifications(svc, nil)

	req := requestWithParams(http.MethodGet, "/api/v1/vendors/"+vendorID.String()+"/notifications?limit=10", "",
		map[string]string{"vendorId": vendorID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data notifications.ListResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 {
		t.Fatalf("expected one notification, got %d", len(envelope.Data.Items))
	}
}

func TestMarkNotificationRead(t *testing.T) {
	vendorID := uuid.New()
	notificationID := uuid.New()
	svc := &stubNotificationsService{}
	handler := MarkNotificationRead(svc, nil)

	req := requestWithParams(http.MethodPost,
		"/api/v1/vendors/"+vendorID.String()+"/notifications/"+notificationID.String()+"/read", "",
		map[string]string{"vendorId": vendorID.String(), "notificationId": notificationID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(svc.read) != 1 || svc.read[0] != notificationID {
		t.Fatalf("unexpected read calls %+v", svc.read)
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	vendorID := uuid.New()
	svc := &stubNotificationsService{}
	handler := MarkAllNotificationsRead(svc, nil)

	req := requestWithParams(http.MethodPost, "/api/v1/vendors/"+vendorID.String()+"/notifications/read-all", "",
		map[string]string{"vendorId": vendorID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.readAll != 1 {
		t.Fatalf("expected one mark-all call, got %d", svc.readAll)
	}
}

type stubInventoryService struct {
	alert  *models.InventoryAlert
	upsert inventory.UpsertAlertInput
	err    error
}

func (s *stubInventoryService) RestoreStock(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	panic("not used")
}

func (s *stubInventoryService) UpsertAlert(ctx context.Context, input inventory.UpsertAlertInput) (*models.InventoryAlert, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.upsert = input
	return s.alert, nil
}

func (s *stubInventoryService) ListAlerts(ctx context.Context, vendorID uuid.UUID) ([]models.InventoryAlert, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.alert == nil {
		return nil, nil
	}
	return []models.InventoryAlert{*s.alert}, nil
}

func (s *stubInventoryService) CheckLevels(ctx context.Context) (*inventory.SweepResult, error) {
	panic("not used")
}

func TestUpsertInventoryAlert(t *testing.T) {
	vendorID := uuid.New()
	productID := uuid.New()
	svc := &stubInventoryService{alert: &models.InventoryAlert{
		ID:        uuid.New(),
		VendorID:  vendorID,
		ProductID: productID,
		Type:      enums.InventoryAlertTypeLowStock,
		Threshold: 10,
		IsActive:  true,
	}}
	handler := UpsertInventoryAlert(svc, nil)

	body := `{"product_id":"` + productID.String() + `","type":"low_stock","threshold":10}`
	req := requestWithParams(http.MethodPut, "/api/v1/vendors/"+vendorID.String()+"/inventory-alerts", body,
		map[string]string{"vendorId": vendorID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.upsert.ProductID != productID || svc.upsert.VendorID != vendorID {
		t.Fatalf("unexpected input %+v", svc.upsert)
	}
	if svc.upsert.Threshold == nil || *svc.upsert.Threshold != 10 {
		t.Fatal("threshold not forwarded")
	}
}

func TestUpsertInventoryAlertUnknownType(t *testing.T) {
	vendorID := uuid.New()
	svc := &stubInventoryService{}
	handler := UpsertInventoryAlert(svc, nil)

	body := `{"product_id":"` + uuid.NewString() + `","type":"backorder"}`
	req := requestWithParams(http.MethodPut, "/api/v1/vendors/"+vendorID.String()+"/inventory-alerts", body,
		map[string]string{"vendorId": vendorID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestListInventoryAlerts(t *testing.T) {
	vendorID := uuid.New()
	svc := &stubInventoryService{alert: &models.InventoryAlert{
		ID:       uuid.New(),
		VendorID: vendorID,
		Type:     enums.InventoryAlertTypeLowStock,
	}}
	handler := ListInventoryAlerts(svc, nil)

	req := requestWithParams(http.MethodGet, "/api/v1/vendors/"+vendorID.String()+"/inventory-alerts", "",
		map[string]string{"vendorId": vendorID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data []models.InventoryAlert `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("expected one alert, got %d", len(envelope.Data))
	}
}
