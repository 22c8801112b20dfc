package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"radpanel/internal/models"
)

// OrderRepository handles provisioned order rows.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindAll returns orders newest first. Zero ownerID means every owner.
func (r *OrderRepository) FindAll(limit, page int, status models.OrderStatus, ownerID uint) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	db := r.db.Model(&models.Order{})
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
	if err := db.Limit(limit).Offset(offset).Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// FindByID returns an order by ID.
func (r *OrderRepository) FindByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate reads an order with a row lock. Call inside a transaction.
func (r *OrderRepository) FindByIDForUpdate(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByUsername returns the order that owns a gateway username.
func (r *OrderRepository) FindByUsername(username string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("marzban_username = ?", username).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ExistsUsername checks whether any order ever used the username.
func (r *OrderRepository) ExistsUsername(username string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Order{}).Where("marzban_username = ?", username).Count(&count).Error
	return count > 0, err
}

// Create inserts an order. The unique index on marzban_username rejects duplicates.
func (r *OrderRepository) Create(order *models.Order) error {
	return r.db.Omit("Plan").Create(order).Error
}

// Delete removes an order row; used to compensate a failed provisioning.
func (r *OrderRepository) Delete(id uint) error {
	return r.db.Where("id = ?", id).Delete(&models.Order{}).Error
}

// Transition moves an order from one status to another and applies extra
// column updates. It returns zero rows when the order was not in from.
func (r *OrderRepository) Transition(id uint, from, to models.OrderStatus, extra map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// ExpireDue marks every ACTIVE order whose expiry is before now as EXPIRED.
func (r *OrderRepository) ExpireDue(now time.Time) (int64, error) {
	res := r.db.Model(&models.Order{}).
		Where("status = ? AND expires_at < ?", models.OrderActive, now).
		Update("status", models.OrderExpired)
	return res.RowsAffected, res.Error
}

// FindActive returns ACTIVE orders in ID order, a batch at a time.
func (r *OrderRepository) FindActive(afterID uint, batch int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("status = ? AND id > ?", models.OrderActive, afterID).
		Order("id ASC").Limit(batch).Find(&orders).Error
	return orders, err
}

// FindActiveByOwner returns the ACTIVE orders of an owner.
func (r *OrderRepository) FindActiveByOwner(ownerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("status = ? AND owner_id = ?", models.OrderActive, ownerID).
		Order("id ASC").Find(&orders).Error
	return orders, err
}

// UpdateUsage stores the latest usage snapshot from the gateway.
func (r *OrderRepository) UpdateUsage(id uint, usedTraffic int64, syncedAt time.Time) error {
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"used_traffic": usedTraffic,
		"synced_at":    syncedAt,
	}).Error
}

// CountByStatus counts orders in a status.
func (r *OrderRepository) CountByStatus(status models.OrderStatus) (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
