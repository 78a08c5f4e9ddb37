package sandbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/josh-kwaku/estate-checkout/internal/domain"
)

type paymentRecord struct {
	payment domain.Payment
	userID  uuid.UUID
	reads   int
	forced  domain.PaymentStatus
}

// CreatePayment registers a payment for userID. The payment starts Sent;
// status reads move it through Pending to its final status.
func (s *Store) CreatePayment(_ context.Context, userID uuid.UUID, req domain.PaymentRequest) (*domain.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("CreatePayment: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.integration(req.IntegrationID)
	if !ok || !in.IsActive {
		return nil, fmt.Errorf("CreatePayment: %w: %s", ErrUnknownIntegration, req.IntegrationID)
	}
	if in.Currency != "" && in.Currency != req.Currency {
		return nil, fmt.Errorf("CreatePayment: %w", &domain.ValidationError{Fields: []domain.FieldError{
			{Field: "currency", Message: fmt.Sprintf("%s does not accept %s", in.Name, req.Currency)},
		}})
	}

	ref := uuid.NewString()
	p := domain.Payment{
		Reference:      ref,
		Status:         domain.PaymentStatusSent,
		Amount:         req.Amount,
		Currency:       req.Currency,
		RedirectURL:    strings.TrimSuffix(s.opts.PaymentBaseURL, "/") + "/pay/" + ref,
		PollURL:        strings.TrimSuffix(s.opts.PollBaseURL, "/") + "/payments/payments/" + ref + "/",
		Integration:    &in,
		IsRedirectable: true,
		IsPollable:     true,
		CreatedAt:      s.now().UTC(),
	}
	s.payments[ref] = &paymentRecord{payment: p, userID: userID}
	return &p, nil
}

// GetPayment returns the caller's payment and counts the read. Payments of
// other users are reported as not found.
func (s *Store) GetPayment(_ context.Context, userID uuid.UUID, reference string) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.payments[reference]
	if !ok || rec.userID != userID {
		return nil, fmt.Errorf("GetPayment: %w", domain.ErrNotFound)
	}

	if !rec.payment.Status.IsTerminal() {
		rec.reads++
		switch {
		case rec.forced != "":
			rec.payment.Status = rec.forced
		case rec.reads > s.opts.PendingPolls:
			rec.payment.Status = domain.PaymentStatusPaid
		default:
			rec.payment.Status = domain.PaymentStatusPending
		}
	}

	p := rec.payment
	return &p, nil
}

// Settle forces the status the next read reports, as the provider callback
// would in a real deployment.
func (s *Store) Settle(_ context.Context, reference string, status domain.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.payments[reference]
	if !ok {
		return fmt.Errorf("Settle: %w", domain.ErrNotFound)
	}
	rec.forced = status
	return nil
}
