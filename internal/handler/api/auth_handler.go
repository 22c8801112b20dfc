package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"radpanel/internal/middleware"
	"radpanel/internal/models"
	"radpanel/internal/service"
)

// AuthHandler serves /api/auth.
type AuthHandler struct {
	auth         *service.AuthService
	users        *service.UserService
	cookieSecure bool
	cookieTTL    time.Duration
	logger       *zap.Logger
}

func NewAuthHandler(svc *service.Services, cookieSecure bool, cookieTTL time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: svc.Auth, users: svc.Users, cookieSecure: cookieSecure, cookieTTL: cookieTTL, logger: logger}
}

func (h *AuthHandler) setCookie(c echo.Context, value string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	res, err := h.auth.Login(c.Request().Context(), req)
	if err != nil {
		return failWith(c, h.logger, "login", err)
	}
	h.setCookie(c, res.Token, int(h.cookieTTL.Seconds()))
	return successResponse(c, "Successful", map[string]interface{}{
		"access_token": res.Token,
		"token_type":   "bearer",
		"expires_at":   res.Session.ExpiresAt,
		"user":         res.User,
	})
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	user, err := h.users.RegisterEndUser(c.Request().Context(), req)
	if err != nil {
		return failWith(c, h.logger, "register", err)
	}
	return createdResponse(c, "Account created", user)
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), session(c)); err != nil {
		h.logger.Warn("revoke session", zap.Error(err))
	}
	h.setCookie(c, "", -1)
	return successResponse(c, "Logged out", nil)
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.users.Profile(session(c).UserID)
	if err != nil {
		return failWith(c, h.logger, "load profile", err)
	}
	return successResponse(c, "Successful", user)
}

// ChangePassword POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req models.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.auth.ChangePassword(session(c).UserID, req); err != nil {
		return failWith(c, h.logger, "change password", err)
	}
	return successResponse(c, "Password changed", nil)
}
