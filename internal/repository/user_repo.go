package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"radpanel/internal/models"
)

// UserRepository handles user, agent and end-user profile rows.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindAll returns users of a role with pagination and optional search/status filter.
func (r *UserRepository) FindAll(limit, page int, role models.Role, status, query string) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	db := r.db.Model(&models.User{})
	if role != "" {
		db = db.Where("users.role = ?", role)
	}
	if status != "" {
		db = db.Where("users.status = ?", status)
	}
	if query != "" {
		search := "%" + query + "%"
		db = db.Joins("LEFT JOIN agents ON agents.user_id = users.id").
			Where("users.username LIKE ? OR users.email LIKE ? OR agents.first_name LIKE ? OR agents.last_name LIKE ? OR agents.phone LIKE ? OR agents.shop_name LIKE ?",
				search, search, search, search, search, search)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, _, offset := pageBounds(limit, page)
	err := db.Preload("Agent").Preload("Wallet").
		Limit(limit).Offset(offset).Order("users.created_at DESC").Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// FindByID returns a user with profile and wallet loaded.
func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.Preload("Agent").Preload("EndUser").Preload("Wallet").
		Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername looks a user up by login name.
func (r *UserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsUsername checks whether a login name is taken.
func (r *UserRepository) ExistsUsername(username string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// Create inserts the user row only; profiles and wallet are created separately.
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Omit(clause.Associations).Create(user).Error
}

func (r *UserRepository) CreateAgent(agent *models.Agent) error {
	return r.db.Create(agent).Error
}

func (r *UserRepository) CreateEndUser(endUser *models.EndUser) error {
	return r.db.Create(endUser).Error
}

// Update updates user fields.
func (r *UserRepository) Update(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateAgent updates the agent profile belonging to userID.
func (r *UserRepository) UpdateAgent(userID uint, updates map[string]interface{}) error {
	return r.db.Model(&models.Agent{}).Where("user_id = ?", userID).Updates(updates).Error
}

// UpdateEndUser updates the end-user profile belonging to userID.
func (r *UserRepository) UpdateEndUser(userID uint, updates map[string]interface{}) error {
	return r.db.Model(&models.EndUser{}).Where("user_id = ?", userID).Updates(updates).Error
}

// SetStatus enables or disables an account.
func (r *UserRepository) SetStatus(id uint, status models.UserStatus) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("status", status).Error
}

// CountByRole counts users of a role.
func (r *UserRepository) CountByRole(role models.Role) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}
