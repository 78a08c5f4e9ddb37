package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/josh-kwaku/estate-checkout/internal/domain"
	"github.com/josh-kwaku/estate-checkout/internal/logging"
	"github.com/josh-kwaku/estate-checkout/internal/sandbox"
)

type paymentStore interface {
	CreatePayment(ctx context.Context, userID uuid.UUID, req domain.PaymentRequest) (*domain.Payment, error)
	GetPayment(ctx context.Context, userID uuid.UUID, reference string) (*domain.Payment, error)
	ActiveIntegrations(ctx context.Context) []domain.Integration
}

type PaymentHandler struct {
	payments paymentStore
	limiter  sandbox.Limiter
}

func NewPaymentHandler(payments paymentStore, limiter sandbox.Limiter) *PaymentHandler {
	return &PaymentHandler{payments: payments, limiter: limiter}
}

type createPaymentResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Payment *domain.Payment `json:"payment"`
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, appErr := callerID(r)
	if appErr != nil {
		RespondAppError(w, appErr)
		return
	}

	if allowed, wait := h.limiter.Allow(userID.String()); !allowed {
		secs := int(math.Ceil(wait.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(1, secs)))
		log.Warn("payment creation throttled", "retry_after_s", secs)
		RespondAppError(w, ErrThrottled)
		return
	}

	var req domain.PaymentRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr)
		return
	}

	p, err := h.payments.CreatePayment(r.Context(), userID, req)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	log.Info("payment created", "reference", p.Reference, "amount", p.Amount.String(), "currency", p.Currency)
	RespondJSON(w, http.StatusCreated, createPaymentResponse{
		Success: true,
		Message: "Payment initiated",
		Payment: p,
	})
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, appErr := callerID(r)
	if appErr != nil {
		RespondAppError(w, appErr)
		return
	}

	p, err := h.payments.GetPayment(r.Context(), userID, r.PathValue("reference"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, p)
}

func (h *PaymentHandler) Integrations(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, h.payments.ActiveIntegrations(r.Context()))
}
