package repository

import (
	"gorm.io/gorm"

	"radpanel/internal/models"
)

// PlanRepository handles plan catalog rows.
type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// FindAll returns plans ordered by public price. activeOnly hides INACTIVE plans.
func (r *PlanRepository) FindAll(limit, page int, activeOnly bool) ([]models.Plan, int64, error) {
	var plans []models.Plan
	var total int64

	db := r.db.Model(&models.Plan{})
	if activeOnly {
		db = db.Where("status = ?", models.PlanActive)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, _, offset := pageBounds(limit, page)
	if err := db.Limit(limit).Offset(offset).Order("price_public ASC, id ASC").Find(&plans).Error; err != nil {
		return nil, 0, err
	}
	return plans, total, nil
}

// FindByID returns a plan by ID.
func (r *PlanRepository) FindByID(id uint) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.Where("id = ?", id).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) Create(plan *models.Plan) error {
	return r.db.Create(plan).Error
}

// Update updates plan fields.
func (r *PlanRepository) Update(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.Plan{}).Where("id = ?", id).Updates(updates).Error
}

// IsReferenced reports whether any order was created from the plan.
func (r *PlanRepository) IsReferenced(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Order{}).Where("plan_id = ?", id).Count(&count).Error
	return count > 0, err
}
