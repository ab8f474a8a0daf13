package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"stk-crm/internal/auth"
)

// AuthService is the part of auth.Service the handlers use.
type AuthService interface {
	Login(ctx context.Context, identifier, password string) (*auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	Logout(ctx context.Context, p *auth.Principal) error
}

type AuthHandler struct {
	svc    AuthService
	logger *zap.Logger
}

func NewAuthHandler(svc AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	session, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		authError(w, h.logger, err)
		return
	}

	h.logger.Info("login", zap.String("username", req.Username), zap.String("role", session.Role))
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"access_token":  session.AccessToken,
		"refresh_token": session.RefreshToken,
		"token_type":    "bearer",
		"role":          session.Role,
	})
}

// POST /auth/token/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		authError(w, h.logger, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"access_token":  session.AccessToken,
		"refresh_token": session.RefreshToken,
		"token_type":    "bearer",
	})
}

// POST /auth/logout clears the caller's refresh token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), principal(r)); err != nil {
		authError(w, h.logger, err)
		return
	}
	jsonMessage(w, "Logged out successfully")
}

// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, principal(r))
}
