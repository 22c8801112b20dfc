package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"radpanel/internal/models"
	"radpanel/internal/service"
)

// PaymentMethodHandler serves /api/payment-methods and its admin routes.
type PaymentMethodHandler struct {
	methods *service.PaymentMethodService
	logger  *zap.Logger
}

func NewPaymentMethodHandler(svc *service.Services, logger *zap.Logger) *PaymentMethodHandler {
	return &PaymentMethodHandler{methods: svc.PaymentMethods, logger: logger}
}

// Public GET /api/payment-methods
func (h *PaymentMethodHandler) Public(c echo.Context) error {
	methods, err := h.methods.PublicList()
	if err != nil {
		return failWith(c, h.logger, "list public payment methods", err)
	}
	return successResponse(c, "Successful", methods)
}

// List GET /api/admin/payment-methods?type=&status=
func (h *PaymentMethodHandler) List(c echo.Context) error {
	limit, page := pagination(c)
	methods, total, err := h.methods.List(
		models.PaymentMethodType(c.QueryParam("type")),
		models.PaymentMethodStatus(c.QueryParam("status")),
		limit, page)
	if err != nil {
		return failWith(c, h.logger, "list payment methods", err)
	}
	return successResponse(c, "Successful", paginatedResponse(methods, total, page, limit))
}

// Get GET /api/admin/payment-methods/:id
func (h *PaymentMethodHandler) Get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	m, err := h.methods.Get(id)
	if err != nil {
		return failWith(c, h.logger, "get payment method", err)
	}
	return successResponse(c, "Successful", m)
}

// Create POST /api/admin/payment-methods
func (h *PaymentMethodHandler) Create(c echo.Context) error {
	var req models.PaymentMethodRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	m, err := h.methods.Create(req)
	if err != nil {
		return failWith(c, h.logger, "create payment method", err)
	}
	return createdResponse(c, "Payment method created", m)
}

// Update PUT /api/admin/payment-methods/:id
func (h *PaymentMethodHandler) Update(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	var req models.PaymentMethodRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	m, err := h.methods.Update(id, req)
	if err != nil {
		return failWith(c, h.logger, "update payment method", err)
	}
	return successResponse(c, "Payment method updated", m)
}

// Delete DELETE /api/admin/payment-methods/:id deactivates the method.
func (h *PaymentMethodHandler) Delete(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	if err := h.methods.Deactivate(id); err != nil {
		return failWith(c, h.logger, "deactivate payment method", err)
	}
	return successResponse(c, "Payment method deactivated", nil)
}
