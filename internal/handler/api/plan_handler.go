package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"radpanel/internal/models"
	"radpanel/internal/service"
)

// PlanHandler serves /api/plans and /api/admin/plans.
type PlanHandler struct {
	plans  *service.PlanService
	logger *zap.Logger
}

func NewPlanHandler(svc *service.Services, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{plans: svc.Plans, logger: logger}
}

// List GET /api/plans. Admins may pass include_inactive=true.
func (h *PlanHandler) List(c echo.Context) error {
	limit, page := pagination(c)
	all := session(c).IsAdmin() && c.QueryParam("include_inactive") == "true"
	plans, total, err := h.plans.List(all, limit, page)
	if err != nil {
		return failWith(c, h.logger, "list plans", err)
	}
	return successResponse(c, "Successful", paginatedResponse(plans, total, page, limit))
}

// Get GET /api/plans/:id
func (h *PlanHandler) Get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	plan, err := h.plans.Get(id, session(c).IsAdmin())
	if err != nil {
		return failWith(c, h.logger, "get plan", err)
	}
	return successResponse(c, "Successful", plan)
}

// Create POST /api/admin/plans
func (h *PlanHandler) Create(c echo.Context) error {
	var req models.PlanRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	plan, err := h.plans.Create(req)
	if err != nil {
		return failWith(c, h.logger, "create plan", err)
	}
	h.logger.Info("plan created", zap.Uint("plan_id", plan.ID), zap.Uint("admin_id", session(c).UserID))
	return createdResponse(c, "Plan created", plan)
}

// Update PUT /api/admin/plans/:id
func (h *PlanHandler) Update(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	var req models.PlanRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	plan, err := h.plans.Update(id, req)
	if err != nil {
		return failWith(c, h.logger, "update plan", err)
	}
	return successResponse(c, "Plan updated", plan)
}

// Delete DELETE /api/admin/plans/:id deactivates the plan.
func (h *PlanHandler) Delete(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	if err := h.plans.Deactivate(id); err != nil {
		return failWith(c, h.logger, "deactivate plan", err)
	}
	return successResponse(c, "Plan deactivated", nil)
}
