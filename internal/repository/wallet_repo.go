package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"radpanel/internal/models"
)

// WalletRepository handles wallet balance rows.
type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Create(wallet *models.Wallet) error {
	return r.db.Create(wallet).Error
}

// FindByOwner returns the wallet of a user.
func (r *WalletRepository) FindByOwner(ownerID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.Where("owner_id = ?", ownerID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// FindByOwnerForUpdate reads the wallet with a row lock. Call inside a transaction.
func (r *WalletRepository) FindByOwnerForUpdate(ownerID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ?", ownerID).First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// SaveBalances writes both balances and the negative marker.
func (r *WalletRepository) SaveBalances(wallet *models.Wallet) error {
	return r.db.Model(&models.Wallet{}).Where("owner_id = ?", wallet.OwnerID).Updates(map[string]interface{}{
		"credit_confirmed": wallet.CreditConfirmed,
		"credit_pending":   wallet.CreditPending,
		"negative_since":   wallet.NegativeSince,
		"updated_at":       time.Now(),
	}).Error
}

// FindNegativeAgentsSince returns agent wallets that have been negative since before cutoff.
func (r *WalletRepository) FindNegativeAgentsSince(cutoff time.Time) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := r.db.Model(&models.Wallet{}).
		Joins("JOIN users ON users.id = wallets.owner_id").
		Where("users.role = ? AND wallets.negative_since IS NOT NULL AND wallets.negative_since <= ?", models.RoleAgent, cutoff).
		Find(&wallets).Error
	return wallets, err
}
