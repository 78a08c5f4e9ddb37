package middleware

import (
	"net/http"
	"strings"

	"github.com/josh-kwaku/estate-checkout/internal/auth"
	"github.com/josh-kwaku/estate-checkout/internal/handler"
	"github.com/josh-kwaku/estate-checkout/internal/logging"
)

// Auth admits requests carrying a valid access token. Refresh tokens are
// rejected so a client must go through the refresh endpoint.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				handler.RespondAppError(w, handler.ErrInvalidToken)
				return
			}

			claims, err := auth.ValidateToken(token, secret, auth.TokenAccess)
			if err != nil {
				logging.FromContext(r.Context()).Debug("rejected access token", "error", err)
				handler.RespondAppError(w, handler.ErrInvalidToken)
				return
			}

			ctx := auth.ContextWithClaims(r.Context(), claims)
			ctx = logging.With(ctx, "user_id", claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
