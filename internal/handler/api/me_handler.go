package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"radpanel/internal/models"
	"radpanel/internal/service"
)

// MeHandler serves the caller's own profile, wallet and audit trail.
type MeHandler struct {
	users   *service.UserService
	ledger  *service.Ledger
	reports *service.ReportService
	logger  *zap.Logger
}

func NewMeHandler(svc *service.Services, logger *zap.Logger) *MeHandler {
	return &MeHandler{users: svc.Users, ledger: svc.Ledger, reports: svc.Reports, logger: logger}
}

// Profile GET /api/me/profile
func (h *MeHandler) Profile(c echo.Context) error {
	user, err := h.users.Profile(session(c).UserID)
	if err != nil {
		return failWith(c, h.logger, "load profile", err)
	}
	return successResponse(c, "Successful", user)
}

// UpdateProfile PUT /api/me/profile
func (h *MeHandler) UpdateProfile(c echo.Context) error {
	var req models.ProfileUpdateRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	user, err := h.users.UpdateProfile(c.Request().Context(), session(c).UserID, req)
	if err != nil {
		return failWith(c, h.logger, "update profile", err)
	}
	return successResponse(c, "Profile updated", user)
}

// Wallet GET /api/me/wallet
func (h *MeHandler) Wallet(c echo.Context) error {
	w, err := h.ledger.Wallet(session(c).UserID)
	if err != nil {
		return failWith(c, h.logger, "load wallet", err)
	}
	return successResponse(c, "Successful", models.NewWalletView(*w))
}

// Transactions GET /api/me/transactions
func (h *MeHandler) Transactions(c echo.Context) error {
	limit, page := pagination(c)
	rows, total, err := h.reports.Transactions(session(c).UserID, limit, page)
	if err != nil {
		return failWith(c, h.logger, "list transactions", err)
	}
	return successResponse(c, "Successful", paginatedResponse(rows, total, page, limit))
}
