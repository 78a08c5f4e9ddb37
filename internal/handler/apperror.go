package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "not_authenticated", "Authentication credentials were not provided."}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "token_not_valid", "Given token not valid for any token type"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "no_active_account", "No active account found with the given credentials"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "parse_error", "Malformed request body."}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "not_found", "Not found."}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "server_error", "A server error occurred."}

	ErrThrottled          = &AppError{http.StatusTooManyRequests, "throttled", "Request was throttled."}
	ErrUnknownIntegration = &AppError{http.StatusBadRequest, "invalid_integration", "Payment integration is not available."}
)
