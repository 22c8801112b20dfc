package repository

import (
	"time"

	"gorm.io/gorm"

	"radpanel/internal/models"
)

// PaymentRepository handles uploaded payment receipts.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindAll returns payments newest first. Zero ownerID means every owner.
func (r *PaymentRepository) FindAll(limit, page int, status models.PaymentStatus, ownerID uint) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	db := r.db.Model(&models.Payment{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if ownerID != 0 {
		db = db.Where("owner_id = ?", ownerID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, _, offset := pageBounds(limit, page)
	err := db.Preload("PaymentMethod").Preload("Owner").
		Limit(limit).Offset(offset).Order("created_at DESC, id DESC").Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// FindByID returns a payment by ID.
func (r *PaymentRepository) FindByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Preload("PaymentMethod").Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// Create creates a new payment.
func (r *PaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// Delete removes a payment row; used when a self-service order fails
// after its receipt was recorded.
func (r *PaymentRepository) Delete(id uint) error {
	return r.db.Where("id = ?", id).Delete(&models.Payment{}).Error
}

// Review moves a PENDING payment to status. It returns the number of rows
// changed, which is zero when the payment was no longer pending.
func (r *PaymentRepository) Review(id uint, status models.PaymentStatus, notes string, reviewer uint, at time.Time) (int64, error) {
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentPending).
		Updates(map[string]interface{}{
			"status":      status,
			"admin_notes": notes,
			"reviewed_by": reviewer,
			"reviewed_at": at,
		})
	return res.RowsAffected, res.Error
}

// CountByStatus counts payments in a status.
func (r *PaymentRepository) CountByStatus(status models.PaymentStatus) (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// SumApproved returns the total amount of approved payments.
func (r *PaymentRepository) SumApproved() (int64, error) {
	var sum int64
	err := r.db.Model(&models.Payment{}).
		Where("status = ?", models.PaymentApproved).
		Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error
	return sum, err
}

// DailyUsage returns count and amount of non-rejected payments for a method in [from, to).
func (r *PaymentRepository) DailyUsage(methodID uint, from, to time.Time) (int64, int64, error) {
	var row struct {
		Count int64
		Total int64
	}
	err := r.db.Model(&models.Payment{}).
		Where("payment_method_id = ? AND status <> ? AND created_at >= ? AND created_at < ?",
			methodID, models.PaymentRejected, from, to).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Scan(&row).Error
	return row.Count, row.Total, err
}

// PendingReceiptPaths returns receipt paths still referenced by PENDING payments.
func (r *PaymentRepository) PendingReceiptPaths() ([]string, error) {
	var paths []string
	err := r.db.Model(&models.Payment{}).
		Where("status = ? AND receipt_path <> ''", models.PaymentPending).
		Pluck("receipt_path", &paths).Error
	return paths, err
}
