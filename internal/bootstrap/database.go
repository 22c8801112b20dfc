package bootstrap

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"radpanel/internal/auth"
	"radpanel/internal/config"
	"radpanel/internal/models"
)

// MigrateAndSeed ensures required tables exist and seeds the first admin.
func MigrateAndSeed(db *gorm.DB, admin config.AdminSeedConfig, hasher auth.Hasher, logger *zap.Logger) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	if err := ensureAdmin(db, admin, hasher, logger); err != nil {
		return fmt.Errorf("seed admin failed: %w", err)
	}
	return nil
}

// ensureAdmin creates the configured admin unless any admin already exists.
func ensureAdmin(db *gorm.DB, seed config.AdminSeedConfig, hasher auth.Hasher, logger *zap.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username := strings.TrimSpace(seed.Username)
	if username == "" || seed.Password == "" {
		logger.Warn("No admin account exists and ADMIN_USERNAME/ADMIN_PASSWORD are not set")
		return nil
	}

	hash, err := hasher.Hash(seed.Password)
	if err != nil {
		return err
	}
	admin := models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Status:       models.UserActive,
	}
	if err := db.Create(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("username %q is taken by a non-admin account", username)
		}
		return err
	}
	logger.Info("Seeded admin account", zap.String("username", username))
	return nil
}
