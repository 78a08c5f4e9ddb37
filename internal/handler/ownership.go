package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/estate-checkout/internal/auth"
)

func callerID(r *http.Request) (uuid.UUID, *AppError) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, ErrMissingToken
	}
	return userID, nil
}
