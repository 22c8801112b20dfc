package repository

import (
	"gorm.io/gorm"

	"radpanel/internal/models"
)

// PaymentMethodRepository handles payment method rows.
type PaymentMethodRepository struct {
	db *gorm.DB
}

func NewPaymentMethodRepository(db *gorm.DB) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

// FindAll returns methods with pagination and optional type/status filter.
func (r *PaymentMethodRepository) FindAll(limit, page int, methodType models.PaymentMethodType, status models.PaymentMethodStatus) ([]models.PaymentMethod, int64, error) {
	var methods []models.PaymentMethod
	var total int64

	db := r.db.Model(&models.PaymentMethod{})
	if methodType != "" {
		db = db.Where("type = ?", methodType)
	}
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, _, offset := pageBounds(limit, page)
	if err := db.Limit(limit).Offset(offset).Order("id ASC").Find(&methods).Error; err != nil {
		return nil, 0, err
	}
	return methods, total, nil
}

// FindActive returns every ACTIVE method.
func (r *PaymentMethodRepository) FindActive() ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	err := r.db.Where("status = ?", models.MethodActive).Order("id ASC").Find(&methods).Error
	return methods, err
}

// FindByID returns a method by ID.
func (r *PaymentMethodRepository) FindByID(id uint) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := r.db.Where("id = ?", id).First(&method).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *PaymentMethodRepository) Create(method *models.PaymentMethod) error {
	return r.db.Create(method).Error
}

// Update updates method fields.
func (r *PaymentMethodRepository) Update(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.PaymentMethod{}).Where("id = ?", id).Updates(updates).Error
}
