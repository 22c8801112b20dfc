package repository

import (
	"time"

	"gorm.io/gorm"

	"radpanel/internal/models"
)

// TransactionRepository handles the wallet audit trail.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(txn *models.Transaction) error {
	return r.db.Omit("Owner").Create(txn).Error
}

// FindByOwner returns an owner's audit rows newest first.
func (r *TransactionRepository) FindByOwner(ownerID uint, limit, page int) ([]models.Transaction, int64, error) {
	var txns []models.Transaction
	var total int64

	db := r.db.Model(&models.Transaction{}).Where("owner_id = ?", ownerID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, _, offset := pageBounds(limit, page)
	if err := db.Limit(limit).Offset(offset).Order("created_at DESC, id DESC").Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// ExportFilter narrows the rows returned by FindForExport. Zero values match everything.
type ExportFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	OwnerIDs []uint
	Types    []models.TransactionType
}

// FindForExport returns matching rows oldest first with the owner loaded.
func (r *TransactionRepository) FindForExport(f ExportFilter) ([]models.Transaction, error) {
	var txns []models.Transaction

	db := r.db.Model(&models.Transaction{})
	if f.DateFrom != nil {
		db = db.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		db = db.Where("created_at < ?", *f.DateTo)
	}
	if len(f.OwnerIDs) > 0 {
		db = db.Where("owner_id IN ?", f.OwnerIDs)
	}
	if len(f.Types) > 0 {
		db = db.Where("type IN ?", f.Types)
	}

	err := db.Preload("Owner").Order("created_at ASC, id ASC").Find(&txns).Error
	return txns, err
}
