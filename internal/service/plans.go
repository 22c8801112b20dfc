package service

import (
	"fmt"
	"strings"

	"radpanel/internal/models"
	"radpanel/internal/repository"
)

// PlanService manages the plan catalog.
type PlanService struct {
	repos *repository.Repos
}

// List returns plans by public price; non-admins only see ACTIVE ones.
func (s *PlanService) List(includeInactive bool, limit, page int) ([]models.Plan, int64, error) {
	return s.repos.Plans.FindAll(limit, page, !includeInactive)
}

// Get returns a plan. Inactive plans are hidden unless includeInactive.
func (s *PlanService) Get(id uint, includeInactive bool) (*models.Plan, error) {
	plan, err := s.repos.Plans.FindByID(id)
	if err != nil {
		return nil, notFound(err, "plan")
	}
	if !includeInactive && !plan.IsActive() {
		return nil, fmt.Errorf("plan %w", ErrNotFound)
	}
	return plan, nil
}

func validatePlan(req *models.PlanRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	switch {
	case req.Name == "":
		return validation("name is required")
	case req.Days <= 0:
		return validation("days must be positive")
	case req.DataLimitGB < 0:
		return validation("data_limit_gb must not be negative")
	case req.PricePublic < 0 || req.PriceAgent < 0:
		return validation("prices must not be negative")
	}
	switch req.Status {
	case "":
		req.Status = models.PlanActive
	case models.PlanActive, models.PlanInactive:
	default:
		return validation("unknown plan status %q", req.Status)
	}
	return nil
}

func (s *PlanService) Create(req models.PlanRequest) (*models.Plan, error) {
	if err := validatePlan(&req); err != nil {
		return nil, err
	}
	plan := &models.Plan{
		Name:        req.Name,
		Days:        req.Days,
		DataLimitGB: req.DataLimitGB,
		PricePublic: req.PricePublic,
		PriceAgent:  req.PriceAgent,
		Status:      req.Status,
	}
	if err := s.repos.Plans.Create(plan); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	return plan, nil
}

// Update rewrites a plan. Once an order references the plan only its
// status may change.
func (s *PlanService) Update(id uint, req models.PlanRequest) (*models.Plan, error) {
	plan, err := s.repos.Plans.FindByID(id)
	if err != nil {
		return nil, notFound(err, "plan")
	}
	if err := validatePlan(&req); err != nil {
		return nil, err
	}

	termsChanged := req.Name != plan.Name || req.Days != plan.Days || req.DataLimitGB != plan.DataLimitGB ||
		req.PricePublic != plan.PricePublic || req.PriceAgent != plan.PriceAgent
	if termsChanged {
		referenced, err := s.repos.Plans.IsReferenced(id)
		if err != nil {
			return nil, fmt.Errorf("check plan references: %w", err)
		}
		if referenced {
			return nil, ErrPlanReferenced
		}
	}

	err = s.repos.Plans.Update(id, map[string]interface{}{
		"name":          req.Name,
		"days":          req.Days,
		"data_limit_gb": req.DataLimitGB,
		"price_public":  req.PricePublic,
		"price_agent":   req.PriceAgent,
		"status":        req.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}
	return s.repos.Plans.FindByID(id)
}

// Deactivate hides a plan from new orders. Plans are never deleted.
func (s *PlanService) Deactivate(id uint) error {
	if _, err := s.repos.Plans.FindByID(id); err != nil {
		return notFound(err, "plan")
	}
	return s.repos.Plans.Update(id, map[string]interface{}{"status": models.PlanInactive})
}
