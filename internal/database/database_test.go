package database

import (
	"path/filepath"
	"testing"

	"salun/config"
	"salun/internal/domain"
	"salun/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedAdmin(t *testing.T) {
	cfg := &config.DatabaseConfig{
		DSN:           "sqlite:" + filepath.Join(t.TempDir(), "seed.db"),
		AdminMobile:   "9999999999",
		AdminPassword: "changeme",
	}
	db, err := NewDB(cfg)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, SeedAdmin(db, cfg))
	require.NoError(t, SeedAdmin(db, cfg))

	var admins []models.User
	require.NoError(t, db.Where("role = ?", domain.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, domain.StatusApproved, admins[0].Status)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admins[0].PasswordHash), []byte("changeme")))
}

func TestSeedAdmin_SkipsWithoutPassword(t *testing.T) {
	cfg := &config.DatabaseConfig{DSN: "sqlite:" + filepath.Join(t.TempDir(), "empty.db"), AdminMobile: "1"}
	db, err := NewDB(cfg)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	require.NoError(t, SeedAdmin(db, cfg))

	var n int64
	db.Model(&models.User{}).Count(&n)
	assert.Zero(t, n)
}

func TestHistoryDetailsRoundTrip(t *testing.T) {
	cfg := &config.DatabaseConfig{DSN: "sqlite:" + filepath.Join(t.TempDir(), "h.db")}
	db, err := NewDB(cfg)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	h := models.History{UserID: 7, Action: domain.ActionScan, Details: models.JSONMap{"amount": 25, "barcode": "A100"}}
	require.NoError(t, db.Create(&h).Error)

	var got models.History
	require.NoError(t, db.First(&got, h.ID).Error)
	assert.Equal(t, float64(25), got.Details["amount"])
	assert.Equal(t, "A100", got.Details["barcode"])
}
