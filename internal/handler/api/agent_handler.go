package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"radpanel/internal/models"
	"radpanel/internal/service"
)

// AgentHandler serves /api/admin/agents.
type AgentHandler struct {
	users   *service.UserService
	ledger  *service.Ledger
	reports *service.ReportService
	logger  *zap.Logger
}

func NewAgentHandler(svc *service.Services, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{users: svc.Users, ledger: svc.Ledger, reports: svc.Reports, logger: logger}
}

// List GET /api/admin/agents?q=&status=
func (h *AgentHandler) List(c echo.Context) error {
	limit, page := pagination(c)
	agents, total, err := h.users.ListAgents(c.QueryParam("status"), c.QueryParam("q"), limit, page)
	if err != nil {
		return failWith(c, h.logger, "list agents", err)
	}
	return successResponse(c, "Successful", paginatedResponse(agents, total, page, limit))
}

// Get GET /api/admin/agents/:id
func (h *AgentHandler) Get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	agent, err := h.users.GetAgent(id)
	if err != nil {
		return failWith(c, h.logger, "get agent", err)
	}
	return successResponse(c, "Successful", agent)
}

// Create POST /api/admin/agents
func (h *AgentHandler) Create(c echo.Context) error {
	var req models.AgentCreateRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	agent, err := h.users.CreateAgent(c.Request().Context(), req)
	if err != nil {
		return failWith(c, h.logger, "create agent", err)
	}
	h.logger.Info("agent created", zap.Uint("agent_id", agent.ID), zap.Uint("admin_id", session(c).UserID))
	return createdResponse(c, "Agent created", agent)
}

// Update PUT /api/admin/agents/:id
func (h *AgentHandler) Update(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	var req models.AgentUpdateRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	agent, err := h.users.UpdateAgent(c.Request().Context(), id, req)
	if err != nil {
		return failWith(c, h.logger, "update agent", err)
	}
	return successResponse(c, "Agent updated", agent)
}

// Disable DELETE /api/admin/agents/:id
func (h *AgentHandler) Disable(c echo.Context) error {
	return h.setStatus(c, models.UserDisabled, "Agent disabled")
}

// Enable POST /api/admin/agents/:id/enable
func (h *AgentHandler) Enable(c echo.Context) error {
	return h.setStatus(c, models.UserActive, "Agent enabled")
}

func (h *AgentHandler) setStatus(c echo.Context, status models.UserStatus, msg string) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	agent, err := h.users.SetAgentStatus(id, status)
	if err != nil {
		return failWith(c, h.logger, "set agent status", err)
	}
	h.logger.Info("agent status changed",
		zap.Uint("agent_id", id),
		zap.String("status", string(status)),
		zap.Uint("admin_id", session(c).UserID))
	return successResponse(c, msg, agent)
}

// Credit POST /api/admin/agents/:id/credit adjusts confirmed credit.
func (h *AgentHandler) Credit(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	var req models.CreditAdjustRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	if _, err := h.users.GetAgent(id); err != nil {
		return failWith(c, h.logger, "get agent", err)
	}
	w, err := h.ledger.AdjustConfirmed(c.Request().Context(), id, req.Amount, session(c).UserID, req.Notes)
	if err != nil {
		return failWith(c, h.logger, "adjust credit", err)
	}
	return successResponse(c, "Credit adjusted", models.NewWalletView(*w))
}

// Transactions GET /api/admin/agents/:id/transactions
func (h *AgentHandler) Transactions(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	limit, page := pagination(c)
	rows, total, err := h.reports.Transactions(id, limit, page)
	if err != nil {
		return failWith(c, h.logger, "list agent transactions", err)
	}
	return successResponse(c, "Successful", paginatedResponse(rows, total, page, limit))
}
