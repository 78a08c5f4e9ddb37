package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyZWD Currency = "ZWD"
)

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyUSD, CurrencyZWD:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusCreated   PaymentStatus = "Created"
	PaymentStatusSent      PaymentStatus = "Sent"
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusPaid      PaymentStatus = "Paid"
	PaymentStatusCancelled PaymentStatus = "Cancelled"
	PaymentStatusFailed    PaymentStatus = "Failed"
)

// IsTerminal reports whether no further transition can occur. Any status
// outside Paid, Cancelled and Failed means keep polling.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusCancelled, PaymentStatusFailed:
		return true
	}
	return false
}

type Integration struct {
	ID       ID       `json:"id"`
	Name     string   `json:"name"`
	Currency Currency `json:"currency,omitempty"`
	IsActive bool     `json:"is_active"`
}

type PaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      Currency        `json:"currency"`
	IntegrationID string          `json:"integration_id"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
}

func (r PaymentRequest) Validate() error {
	var errs []FieldError

	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: ErrInvalidAmount.Error()})
	}
	if r.Currency == "" {
		errs = append(errs, FieldError{Field: "currency", Message: "required"})
	} else if !r.Currency.IsValid() {
		errs = append(errs, FieldError{Field: "currency", Message: "must be USD or ZWD"})
	}
	if r.IntegrationID == "" {
		errs = append(errs, FieldError{Field: "integration_id", Message: "required"})
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

type Payment struct {
	Reference      string          `json:"reference"`
	Status         PaymentStatus   `json:"status"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       Currency        `json:"currency"`
	RedirectURL    string          `json:"payment_url"`
	PollURL        string          `json:"poll_url"`
	Integration    *Integration    `json:"integration,omitempty"`
	IsRedirectable bool            `json:"is_redirectable"`
	IsPollable     bool            `json:"is_pollable"`
	CreatedAt      time.Time       `json:"created_at"`
}
