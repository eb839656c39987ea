package shipping

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/db/models"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/enums"
	pkgerrors "github.com/abdul-hamid-achik/luzimarket-backend/pkg/errors"
)

// Tracking number formats per carrier. Carriers without a known format fall
// back to a minimum length check.
var trackingPatterns = map[enums.Carrier]*regexp.Regexp{
	enums.CarrierUPS:      regexp.MustCompile(`^1Z[A-Z0-9]{16}$`),
	enums.CarrierFedex:    regexp.MustCompile(`^[0-9]{12,22}$`),
	enums.CarrierDHL:      regexp.MustCompile(`^[0-9]{10,11}$`),
	enums.CarrierEstafeta: regexp.MustCompile(`^[A-Z0-9]{10,25}$`),
}

const minGenericTrackingLength = 6

var trackingURLTemplates = map[enums.Carrier]string{
	enums.CarrierUPS:      "https://www.ups.com/track?tracknum=%s",
	enums.CarrierFedex:    "https://www.fedex.com/fedextrack/?trknbr=%s",
	enums.CarrierDHL:      "https://www.dhl.com/mx-es/home/tracking.html?tracking-id=%s",
	enums.CarrierEstafeta: "https://www.estafeta.com/Rastreo/%s",
}

// PurchaseLabelInput captures a label bought through a carrier integration.
type PurchaseLabelInput struct {
	OrderID        uuid.UUID
	Carrier        enums.Carrier
	TrackingNumber string
	LabelURL       string
	Cost           decimal.Decimal
	Dimensions     string
}

// Service owns carrier-specific shipping concerns.
type Service interface {
	ValidateTrackingNumber(number string, carrier enums.Carrier) error
	TrackingURL(number string, carrier enums.Carrier) string
	PurchaseLabel(ctx context.Context, tx *gorm.DB, input PurchaseLabelInput) (*models.ShippingLabel, error)
	FindLabels(ctx context.Context, orderID uuid.UUID) ([]models.ShippingLabel, error)
}

type service struct {
	repo Repository
}

// NewService builds the shipping service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipping repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ValidateTrackingNumber(number string, carrier enums.Carrier) error {
	trimmed := strings.ToUpper(strings.TrimSpace(number))
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tracking number required")
	}
	pattern, ok := trackingPatterns[carrier]
	if !ok {
		if len(trimmed) < minGenericTrackingLength {
			return pkgerrors.New(pkgerrors.CodeValidation, "tracking number too short")
		}
		return nil
	}
	if !pattern.MatchString(trimmed) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("tracking number does not match %s format", carrier))
	}
	return nil
}

func (s *service) TrackingURL(number string, carrier enums.Carrier) string {
	template, ok := trackingURLTemplates[carrier]
	if !ok {
		return ""
	}
	return fmt.Sprintf(template, number)
}

func (s *service) PurchaseLabel(ctx context.Context, tx *gorm.DB, input PurchaseLabelInput) (*models.ShippingLabel, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Carrier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid carrier")
	}
	if input.LabelURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "label url required")
	}
	if input.Cost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "label cost cannot be negative")
	}
	if err := s.ValidateTrackingNumber(input.TrackingNumber, input.Carrier); err != nil {
		return nil, err
	}

	label := &models.ShippingLabel{
		OrderID:        input.OrderID,
		Carrier:        input.Carrier,
		TrackingNumber: strings.ToUpper(strings.TrimSpace(input.TrackingNumber)),
		LabelURL:       input.LabelURL,
		Cost:           input.Cost,
	}
	if dims := strings.TrimSpace(input.Dimensions); dims != "" {
		label.Dimensions = &dims
	}
	if err := s.repo.WithTx(tx).Create(ctx, label); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store shipping label")
	}
	return label, nil
}

func (s *service) FindLabels(ctx context.Context, orderID uuid.UUID) ([]models.ShippingLabel, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	labels, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipping labels")
	}
	return labels, nil
}
