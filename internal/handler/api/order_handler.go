package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"radpanel/internal/models"
	"radpanel/internal/service"
)

// OrderHandler serves /api/orders and the admin order actions.
type OrderHandler struct {
	orders *service.OrderService
	logger *zap.Logger
}

func NewOrderHandler(svc *service.Services, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: svc.Orders, logger: logger}
}

type orderActionRequest struct {
	Notes string `json:"notes"`
}

// Create POST /api/orders
func (h *OrderHandler) Create(c echo.Context) error {
	var req models.OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	order, err := h.orders.Create(c.Request().Context(), session(c), service.CreateOrderInput{
		PlanID:   req.PlanID,
		Username: req.MarzbanUsername,
		Alias:    req.Alias,
		OnHold:   req.OnHold,
	})
	if err != nil {
		return failWith(c, h.logger, "create order", err)
	}
	return createdResponse(c, "Order created", order)
}

// SelfService POST /api/orders/self-service (multipart: plan_id,
// marzban_username, alias, on_hold, payment_method_id, receipt)
func (h *OrderHandler) SelfService(c echo.Context) error {
	planID, err := formUint(c, "plan_id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	methodID, err := formUint(c, "payment_method_id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	file, err := receiptFile(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	defer file.Close()

	order, payment, err := h.orders.CreateWithReceipt(c.Request().Context(), session(c),
		service.CreateOrderInput{
			PlanID:   planID,
			Username: c.FormValue("marzban_username"),
			Alias:    c.FormValue("alias"),
			OnHold:   formBool(c, "on_hold"),
		},
		service.ReceiptInput{MethodID: methodID, Receipt: file})
	if err != nil {
		return failWith(c, h.logger, "create self-service order", err)
	}
	return createdResponse(c, "Order created", map[string]interface{}{
		"order":   order,
		"payment": payment,
	})
}

// List GET /api/orders?status= (admin)
func (h *OrderHandler) List(c echo.Context) error {
	if !session(c).IsAdmin() {
		return h.Mine(c)
	}
	limit, page := pagination(c)
	orders, total, err := h.orders.List(models.OrderStatus(c.QueryParam("status")), limit, page)
	if err != nil {
		return failWith(c, h.logger, "list orders", err)
	}
	return successResponse(c, "Successful", paginatedResponse(orders, total, page, limit))
}

// Mine GET /api/orders/my
func (h *OrderHandler) Mine(c echo.Context) error {
	limit, page := pagination(c)
	orders, total, err := h.orders.ListMine(session(c), limit, page)
	if err != nil {
		return failWith(c, h.logger, "list my orders", err)
	}
	return successResponse(c, "Successful", paginatedResponse(orders, total, page, limit))
}

// Get GET /api/orders/:id
func (h *OrderHandler) Get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	order, err := h.orders.Get(session(c), id)
	if err != nil {
		return failWith(c, h.logger, "get order", err)
	}
	return successResponse(c, "Successful", order)
}

func bindNotes(c echo.Context) (string, error) {
	var req orderActionRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return "", err
		}
	}
	return req.Notes, nil
}

// Refund DELETE /api/orders/:id
func (h *OrderHandler) Refund(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	notes, err := bindNotes(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	order, err := h.orders.Refund(c.Request().Context(), session(c), id, notes)
	if err != nil {
		return failWith(c, h.logger, "refund order", err)
	}
	return successResponse(c, "Order refunded", order)
}

// Disable POST /api/admin/orders/:id/disable
func (h *OrderHandler) Disable(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	notes, err := bindNotes(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	order, err := h.orders.Disable(c.Request().Context(), session(c), id, notes)
	if err != nil {
		return failWith(c, h.logger, "disable order", err)
	}
	return successResponse(c, "Order disabled", order)
}

// CheckUsername GET /api/marzban/check-username/:username
func (h *OrderHandler) CheckUsername(c echo.Context) error {
	username := c.Param("username")
	ok, err := h.orders.CheckUsername(c.Request().Context(), username)
	if err != nil {
		return failWith(c, h.logger, "check username", err)
	}
	return successResponse(c, "Successful", map[string]interface{}{
		"username":  username,
		"available": ok,
	})
}

// AccountInfo GET /api/marzban/user/:username
func (h *OrderHandler) AccountInfo(c echo.Context) error {
	info, err := h.orders.AccountInfo(c.Request().Context(), session(c), c.Param("username"))
	if err != nil {
		return failWith(c, h.logger, "gateway account info", err)
	}
	return successResponse(c, "Successful", info)
}

// Sync POST /api/marzban/sync/:username
func (h *OrderHandler) Sync(c echo.Context) error {
	order, err := h.orders.SyncUsage(c.Request().Context(), session(c), c.Param("username"))
	if err != nil {
		return failWith(c, h.logger, "sync usage", err)
	}
	return successResponse(c, "Usage synced", order)
}

// Health GET /api/marzban/health
func (h *OrderHandler) Health(c echo.Context) error {
	stats, err := h.orders.GatewayHealth(c.Request().Context())
	if err != nil {
		return failWith(c, h.logger, "gateway health", err)
	}
	return successResponse(c, "Successful", stats)
}
