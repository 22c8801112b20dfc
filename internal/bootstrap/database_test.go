package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"radpanel/internal/auth"
	"radpanel/internal/config"
	"radpanel/internal/models"
	"radpanel/internal/pkg/testdb"
)

func TestMigrateAndSeed(t *testing.T) {
	db := testdb.Open(t)
	hasher := auth.NewBCryptHasher(bcrypt.MinCost)
	seed := config.AdminSeedConfig{Username: "root", Password: "s3cret"}

	require.NoError(t, MigrateAndSeed(db, seed, hasher, zap.NewNop()))

	var admin models.User
	require.NoError(t, db.Where("username = ?", "root").First(&admin).Error)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.NoError(t, hasher.Check(admin.PasswordHash, "s3cret"))

	t.Run("second run keeps the existing admin", func(t *testing.T) {
		other := config.AdminSeedConfig{Username: "another", Password: "x"}
		require.NoError(t, MigrateAndSeed(db, other, hasher, zap.NewNop()))

		var count int64
		require.NoError(t, db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})
}

func TestMigrateAndSeed_NoCredentials(t *testing.T) {
	db := testdb.Open(t)
	require.NoError(t, MigrateAndSeed(db, config.AdminSeedConfig{}, auth.NewBCryptHasher(bcrypt.MinCost), zap.NewNop()))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}
