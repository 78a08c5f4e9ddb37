package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/estate-checkout/internal/auth"
	"github.com/josh-kwaku/estate-checkout/internal/domain"
	"github.com/josh-kwaku/estate-checkout/internal/logging"
	"github.com/josh-kwaku/estate-checkout/internal/sandbox"
)

type userStore interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*sandbox.User, error)
	Authenticate(ctx context.Context, email, password string) (*sandbox.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*sandbox.User, error)
}

type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type AuthHandler struct {
	users  userStore
	tokens TokenConfig
}

func NewAuthHandler(users userStore, tokens TokenConfig) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() []domain.FieldError {
	var errs []domain.FieldError
	if r.Email == "" {
		errs = append(errs, domain.FieldError{Field: "email", Message: "This field is required."})
	}
	if r.Password == "" {
		errs = append(errs, domain.FieldError{Field: "password", Message: "This field is required."})
	}
	return errs
}

type tokenPair struct {
	Access  string              `json:"access"`
	Refresh string              `json:"refresh,omitempty"`
	User    *domain.UserSummary `json:"user,omitempty"`
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	access, refresh, err := h.issue(user)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to issue tokens", "error", err)
		RespondAppError(w, ErrInternalError)
		return
	}

	summary := user.Summary()
	RespondJSON(w, http.StatusOK, tokenPair{Access: access, Refresh: refresh, User: &summary})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr)
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	logging.FromContext(r.Context()).Info("user registered", "user_id", user.ID)
	RespondJSON(w, http.StatusCreated, user.Summary())
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr)
		return
	}
	if req.Refresh == "" {
		RespondValidationError(w, []domain.FieldError{{Field: "refresh", Message: "This field is required."}})
		return
	}

	claims, err := auth.ValidateToken(req.Refresh, h.tokens.Secret, auth.TokenRefresh)
	if err != nil {
		RespondAppError(w, ErrInvalidToken)
		return
	}
	if _, err := h.users.GetUser(r.Context(), claims.UserID); err != nil {
		RespondAppError(w, ErrInvalidToken)
		return
	}

	access, err := auth.GenerateToken(claims.UserID, claims.Email, auth.TokenAccess, h.tokens.Secret, h.tokens.AccessTTL)
	if err != nil {
		RespondAppError(w, ErrInternalError)
		return
	}
	RespondJSON(w, http.StatusOK, tokenPair{Access: access})
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr)
		return
	}
	if req.Token == "" {
		RespondValidationError(w, []domain.FieldError{{Field: "token", Message: "This field is required."}})
		return
	}

	if _, err := auth.ValidateToken(req.Token, h.tokens.Secret, auth.TokenAccess); err != nil {
		RespondAppError(w, ErrInvalidToken)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, appErr := callerID(r)
	if appErr != nil {
		RespondAppError(w, appErr)
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, user.Summary())
}

func (h *AuthHandler) issue(u *sandbox.User) (string, string, error) {
	access, err := auth.GenerateToken(u.ID, u.Email, auth.TokenAccess, h.tokens.Secret, h.tokens.AccessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err := auth.GenerateToken(u.ID, u.Email, auth.TokenRefresh, h.tokens.Secret, h.tokens.RefreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}
