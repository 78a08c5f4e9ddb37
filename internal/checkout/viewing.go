package checkout

import (
	"fmt"

	"github.com/josh-kwaku/estate-checkout/internal/domain"
)

const PurposePropertyViewing = "property_viewing"

// ViewingFeeRequest builds the payment for booking a viewing of p.
func ViewingFeeRequest(p domain.Property, currency domain.Currency, integrationID string) (domain.PaymentRequest, error) {
	if !p.ViewingFee.IsPositive() {
		return domain.PaymentRequest{}, fmt.Errorf("ViewingFeeRequest: property %s has no viewing fee", p.ID)
	}
	return domain.PaymentRequest{
		Amount:        p.ViewingFee,
		Currency:      currency,
		IntegrationID: integrationID,
		Metadata: map[string]any{
			"purpose":     PurposePropertyViewing,
			"property_id": p.ID.String(),
		},
	}, nil
}
