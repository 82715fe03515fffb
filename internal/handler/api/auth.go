// Package api implements the JSON endpoints under /api.
package api

import (
	"net/http"

	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/handler"
	"github.com/dukerupert/papertrail/internal/telemetry"
)

// TokenIssuer issues bearer tokens. auth.TokenManager implements it.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// AuthHandler handles registration, login and the current-user lookup.
type AuthHandler struct {
	accounts domain.AccountService
	tokens   TokenIssuer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts domain.AccountService, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens}
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterParams
	if err := handler.Decode(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	telemetry.Business.RecordSignup()

	h.respondWithToken(w, r, http.StatusCreated, user)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	telemetry.Business.RecordLogin(err == nil)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.respondWithToken(w, r, http.StatusOK, user)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Get(r.Context(), domain.RequireOwnerID(r.Context()))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *domain.User) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		handler.InternalErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, status, authResponse{Token: token, User: user})
}
