package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRequest_Validate(t *testing.T) {
	tests := []struct {
		name       string
		req        PaymentRequest
		wantFields []string
	}{
		{
			name: "valid",
			req:  PaymentRequest{Amount: decimal.NewFromInt(100), Currency: CurrencyUSD, IntegrationID: "paynow-1"},
		},
		{
			name:       "zero amount",
			req:        PaymentRequest{Amount: decimal.Zero, Currency: CurrencyUSD, IntegrationID: "paynow-1"},
			wantFields: []string{"amount"},
		},
		{
			name:       "negative amount",
			req:        PaymentRequest{Amount: decimal.NewFromInt(-5), Currency: CurrencyZWD, IntegrationID: "paynow-1"},
			wantFields: []string{"amount"},
		},
		{
			name:       "missing integration",
			req:        PaymentRequest{Amount: decimal.NewFromInt(1), Currency: CurrencyUSD},
			wantFields: []string{"integration_id"},
		},
		{
			name:       "missing currency",
			req:        PaymentRequest{Amount: decimal.NewFromInt(1), IntegrationID: "paynow-1"},
			wantFields: []string{"currency"},
		},
		{
			name:       "unsupported currency",
			req:        PaymentRequest{Amount: decimal.NewFromInt(1), Currency: "EUR", IntegrationID: "paynow-1"},
			wantFields: []string{"currency"},
		},
		{
			name:       "everything missing",
			req:        PaymentRequest{},
			wantFields: []string{"amount", "currency", "integration_id"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantFields == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)

			var got []string
			for _, f := range verr.Fields {
				got = append(got, f.Field)
			}
			assert.Equal(t, tc.wantFields, got)
		})
	}
}

func TestPaymentStatus_IsTerminal(t *testing.T) {
	terminal := []PaymentStatus{PaymentStatusPaid, PaymentStatusCancelled, PaymentStatusFailed}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), s)
	}

	pending := []PaymentStatus{PaymentStatusPending, PaymentStatusCreated, PaymentStatusSent, "Awaiting Delivery", ""}
	for _, s := range pending {
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	var got struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	err := json.Unmarshal([]byte(`{"a": 42, "b": "paynow-usd", "c": null}`), &got)
	require.NoError(t, err)

	assert.Equal(t, ID("42"), got.A)
	assert.Equal(t, ID("paynow-usd"), got.B)
	assert.Equal(t, ID(""), got.C)

	err = json.Unmarshal([]byte(`{"a": {}}`), &got)
	assert.Error(t, err)
}

func TestPayment_DecodesServerShape(t *testing.T) {
	body := `{
		"reference": "R123",
		"status": "Sent",
		"amount": "100.00",
		"currency": "USD",
		"payment_url": "https://pay/x",
		"poll_url": "https://api/payments/R123",
		"integration": {"id": 1, "name": "Paynow USD", "currency": "USD"},
		"is_redirectable": true,
		"is_pollable": true
	}`

	var p Payment
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	assert.Equal(t, "R123", p.Reference)
	assert.True(t, p.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "https://pay/x", p.RedirectURL)
	require.NotNil(t, p.Integration)
	assert.Equal(t, ID("1"), p.Integration.ID)
	assert.False(t, p.Status.IsTerminal())
}
