package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/auth"
	"github.com/emanueledman/fixa-admin/internal/i18n"
	"github.com/emanueledman/fixa-admin/internal/models"
	"github.com/emanueledman/fixa-admin/internal/services"
)

// Accounts is what sign-in needs from the responsible service.
type Accounts interface {
	Authenticate(ctx context.Context, email, password string) (models.Responsible, error)
	EnsureProfile(ctx context.Context, id models.Identity) (models.Responsible, error)
}

// CodeVerifier exchanges a federated sign-in code for an identity.
type CodeVerifier interface {
	Configured() bool
	VerifyCode(ctx context.Context, code string) (models.Identity, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(uid, email string) (string, time.Time, error)
}

// AuthHandler handles sign-in and profile endpoints
type AuthHandler struct {
	accounts Accounts
	google   CodeVerifier
	tokens   TokenIssuer
	logger   *zap.SugaredLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts Accounts, google CodeVerifier, tokens TokenIssuer, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{accounts: accounts, google: google, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	Code string `json:"code"`
}

type sessionResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	Profile   models.Responsible `json:"profile"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			respondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.Errorw("Login failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	h.startSession(w, r, profile)
}

// Google handles POST /api/v1/auth/google
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	if h.google == nil || !h.google.Configured() {
		respondError(w, http.StatusNotImplemented, "Google sign-in is not configured")
		return
	}

	var req googleRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Code == "" {
		respondError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	identity, err := h.google.VerifyCode(r.Context(), req.Code)
	if err != nil {
		h.logger.Warnw("Google sign-in rejected", "error", err)
		if errors.Is(err, auth.ErrInvalidCode) {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	profile, err := h.accounts.EnsureProfile(r.Context(), identity)
	if err != nil {
		h.logger.Errorw("Profile sync failed", "uid", identity.UID, "error", err)
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	h.startSession(w, r, profile)
}

// startSession issues a token only for responsibles.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, profile models.Responsible) {
	if !profile.IsResponsible {
		h.logger.Infow("Sign-in refused for non-responsible", "uid", profile.ID)
		respondError(w, http.StatusForbidden, i18n.Translate(i18n.FromContext(r.Context()), "accessDenied"))
		return
	}

	token, exp, err := h.tokens.Issue(profile.ID, profile.Email)
	if err != nil {
		h.logger.Errorw("Token issue failed", "uid", profile.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.logger.Infow("Responsible signed in", "uid", profile.ID)
	respondJSON(w, http.StatusOK, sessionResponse{Token: token, ExpiresAt: exp, Profile: profile})
}

// Me handles GET /api/v1/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, ok := auth.ResponsibleFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
