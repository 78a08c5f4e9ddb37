package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/estate-checkout/internal/domain"
	"github.com/josh-kwaku/estate-checkout/internal/sandbox"
)

// ErrorBody is the error shape clients parse: a readable detail plus a
// stable code.
type ErrorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondAppError(w http.ResponseWriter, appErr *AppError) {
	RespondJSON(w, appErr.Status, ErrorBody{Detail: appErr.Message, Code: appErr.Code})
}

// RespondValidationError writes field errors keyed by field name, each with
// a list of messages.
func RespondValidationError(w http.ResponseWriter, fields []domain.FieldError) {
	body := make(map[string][]string, len(fields))
	for _, f := range fields {
		body[f.Field] = append(body[f.Field], f.Message)
	}
	RespondJSON(w, http.StatusBadRequest, body)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		RespondValidationError(w, verr.Fields)
		return
	}

	var appErr *AppError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, sandbox.ErrInvalidCredentials):
		appErr = ErrInvalidCredentials
	case errors.Is(err, sandbox.ErrEmailTaken):
		RespondValidationError(w, []domain.FieldError{{Field: "email", Message: "user with this email already exists."}})
		return
	case errors.Is(err, sandbox.ErrUnknownIntegration):
		appErr = ErrUnknownIntegration
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr)
}

func decodeJSON(r *http.Request, v any) *AppError {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return ErrInvalidRequest
	}
	return nil
}
